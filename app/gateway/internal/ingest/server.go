// app/gateway/internal/ingest/server.go
package ingest

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/logstream/pkg/config"
	"github.com/lk2023060901/logstream/pkg/logger"
	"github.com/lk2023060901/logstream/pkg/stream"
)

// Publisher 下游日志分发接口，由网关实现
type Publisher interface {
	Publish(ev *stream.Event)
}

// Server 日志摄入 HTTP 服务
// 上游以 HTTP POST 投递已采样、已格式化的日志事件，
// 事件随即交给网关分发
type Server struct {
	config    *Config
	engine    *gin.Engine
	logger    logger.Logger
	publisher Publisher
	server    *http.Server
}

// NewServer 创建摄入服务
func NewServer(cfg *Config, publisher Publisher, l logger.Logger) (*Server, error) {
	cfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.Default()
	}

	gin.SetMode(cfg.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		config:    cfg,
		engine:    engine,
		logger:    l.Named("ingest"),
		publisher: publisher,
	}
	s.registerRoutes()

	return s, nil
}

// registerRoutes 注册路由
func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	v1 := s.engine.Group("/v1")
	v1.POST("/logs", s.handleLog)
	v1.POST("/logs/batch", s.handleLogBatch)
	v1.POST("/webhooks/grafana", s.handleGrafanaWebhook)
}

// handleHealth 健康检查
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleLog 摄入单条日志事件
func (s *Server) handleLog(c *gin.Context) {
	var ev stream.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
		return
	}

	s.publish(&ev)
	c.JSON(http.StatusAccepted, gin.H{"accepted": 1})
}

// handleLogBatch 摄入一批日志事件
func (s *Server) handleLogBatch(c *gin.Context) {
	var evs []stream.Event
	if err := c.ShouldBindJSON(&evs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch payload"})
		return
	}

	for i := range evs {
		s.publish(&evs[i])
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": len(evs)})
}

// publish 补全时间戳后交给网关
func (s *Server) publish(ev *stream.Event) {
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	s.publisher.Publish(ev)
}

// Handler 返回 http.Handler，测试用
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start 绑定监听并开始服务
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("ingest: bind port %d: %w", s.config.Port, err)
	}

	s.server = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("ingest server exited", "error", err)
		}
	}()

	s.logger.Info("ingest server started", "port", s.config.Port)
	return nil
}

// Stop 优雅关停
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
