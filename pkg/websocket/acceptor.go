// pkg/websocket/acceptor.go
package websocket

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/lk2023060901/logstream/pkg/config"
	"github.com/lk2023060901/logstream/pkg/logger"
	"github.com/panjf2000/ants/v2"
)

// ConnHandler 新连接回调
// 在工作池 goroutine 中执行；r 只应被用来读取握手请求的头部
type ConnHandler func(conn *Connection, r *http.Request)

// Acceptor 接收入站 WebSocket 连接
// 将 HTTP 请求升级为 Connection 后交给上层处理，自身不感知业务协议
type Acceptor struct {
	config   *AcceptorConfig
	upgrader *websocket.Upgrader
	logger   logger.Logger

	// 连接处理工作池
	pool *ants.Pool

	mu     sync.RWMutex
	closed bool
}

// AcceptorOption Acceptor 配置选项
type AcceptorOption func(*Acceptor)

// WithLogger 设置日志记录器
func WithLogger(log logger.Logger) AcceptorOption {
	return func(a *Acceptor) {
		a.logger = log
	}
}

// WithCheckOrigin 设置 Origin 检查函数
func WithCheckOrigin(fn func(r *http.Request) bool) AcceptorOption {
	return func(a *Acceptor) {
		a.upgrader.CheckOrigin = fn
	}
}

// NewAcceptor 创建 Acceptor
func NewAcceptor(cfg *AcceptorConfig, opts ...AcceptorOption) (*Acceptor, error) {
	merged, err := config.MergeConfig(DefaultAcceptorConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	a := &Acceptor{
		config: merged,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:    merged.ReadBufferSize,
			WriteBufferSize:   merged.WriteBufferSize,
			HandshakeTimeout:  merged.HandshakeTimeout,
			EnableCompression: merged.EnableCompression,
		},
	}

	for _, opt := range opts {
		opt(a)
	}

	// 默认只接受无 Origin 的客户端（CLI、SDK 等非浏览器来源）
	if a.upgrader.CheckOrigin == nil {
		a.upgrader.CheckOrigin = func(r *http.Request) bool {
			return r.Header.Get("Origin") == ""
		}
	}

	pool, err := ants.NewPool(merged.WorkerPoolSize)
	if err != nil {
		return nil, err
	}
	a.pool = pool

	return a, nil
}

// Handler 返回处理升级请求的 http.Handler
func (a *Acceptor) Handler(onConn ConnHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.RLock()
		if a.closed {
			a.mu.RUnlock()
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
			return
		}
		a.mu.RUnlock()

		wsConn, err := a.upgrader.Upgrade(w, r, nil)
		if err != nil {
			if a.logger != nil {
				a.logger.Warn("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
			}
			return
		}

		conn := newConnection(wsConn, a.config, a.logger)

		if err := a.pool.Submit(func() { onConn(conn, r) }); err != nil {
			conn.Close(websocket.CloseTryAgainLater, "server busy")
		}
	})
}

// Close 关闭 Acceptor，不再接受新连接
// 已建立的连接由上层负责关闭
func (a *Acceptor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	a.pool.Release()
	return nil
}
