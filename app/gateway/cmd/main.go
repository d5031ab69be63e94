// app/gateway/cmd/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lk2023060901/logstream/app/gateway/internal/ingest"
	"github.com/lk2023060901/logstream/app/gateway/internal/transport"
	"github.com/lk2023060901/logstream/pkg/app"
	"github.com/lk2023060901/logstream/pkg/logger"
	"github.com/lk2023060901/logstream/pkg/metrics/system"
	"github.com/lk2023060901/logstream/pkg/stream"
	"github.com/lk2023060901/logstream/pkg/websocket"
)

// Config Gateway 服务配置
type Config struct {
	Log logger.Config `mapstructure:"log"`

	// 网关配置
	Gateway stream.Config `mapstructure:"gateway"`

	// WebSocket 传输配置
	WebSocket websocket.AcceptorConfig `mapstructure:"websocket"`

	// 摄入服务配置
	Ingest ingest.Config `mapstructure:"ingest"`
}

func main() {
	var cfg Config

	// 1. 加载配置
	if err := app.LoadConfig(&cfg); err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	l, err := logger.New(&cfg.Log)
	if err != nil {
		panic(err)
	}
	defer l.Sync()

	// 3. 初始化系统指标收集器
	collector, err := system.New()
	if err != nil {
		l.Error("failed to create system collector", "error", err)
		os.Exit(1)
	}
	collector.Start(5 * time.Second)
	defer collector.Stop()

	// 4. 初始化 WebSocket 传输
	// 压缩是协商性质的配置，由网关配置透传给传输层
	cfg.WebSocket.EnableCompression = cfg.WebSocket.EnableCompression || cfg.Gateway.Compression
	acceptor, err := websocket.NewAcceptor(&cfg.WebSocket, websocket.WithLogger(l.Named("websocket")))
	if err != nil {
		l.Error("failed to create websocket acceptor", "error", err)
		os.Exit(1)
	}

	// 5. 初始化网关
	gw, err := stream.NewGateway(&cfg.Gateway,
		stream.WithLogger(l),
		stream.WithTransport(transport.NewWebSocket(acceptor)),
		stream.WithMetricsSource(stream.MetricsSourceFunc(func() *stream.Snapshot {
			stats := collector.GetStats()
			return &stream.Snapshot{
				UptimeSeconds: stats.UptimeSeconds,
				CPUPercent:    stats.CPUPercent,
				MemoryBytes:   stats.MemoryBytes,
				MemoryPercent: stats.MemoryPercent,
				Goroutines:    stats.Goroutines,
			}
		})),
	)
	if err != nil {
		l.Error("failed to create gateway", "error", err)
		os.Exit(1)
	}

	// 6. 初始化摄入服务，上游日志经 HTTP 投递给网关
	ingestServer, err := ingest.NewServer(&cfg.Ingest, gw, l)
	if err != nil {
		l.Error("failed to create ingest server", "error", err)
		os.Exit(1)
	}

	// 7. 启动
	if err := gw.Start(); err != nil {
		l.Error("failed to start gateway", "error", err)
		os.Exit(1)
	}
	if err := ingestServer.Start(); err != nil {
		l.Error("failed to start ingest server", "error", err)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		gw.Stop(shutdownCtx)
		cancel()
		os.Exit(1)
	}

	// 8. 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	l.Info("shutting down...")

	// 9. 优雅关停
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := ingestServer.Stop(shutdownCtx); err != nil {
		l.Error("ingest server shutdown error", "error", err)
	}
	if err := gw.Stop(shutdownCtx); err != nil {
		l.Error("gateway shutdown error", "error", err)
	}

	l.Info("exited")
}
