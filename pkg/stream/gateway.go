// pkg/stream/gateway.go
package stream

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/lk2023060901/logstream/pkg/config"
	"github.com/lk2023060901/logstream/pkg/logger"
	"github.com/lk2023060901/logstream/pkg/security"
	"github.com/lk2023060901/logstream/pkg/serializer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 拒绝原因标签
const (
	rejectReasonCapacity = "capacity"
	rejectReasonAuth     = "auth"
	rejectReasonIPFilter = "ip_filter"
)

// Gateway 实时日志分发网关
// 接入并认证客户端连接，把上游日志事件按会话过滤器和限流
// 配额扇出到各连接，并向迟到者回放近期历史。单进程单实例，
// 不跨进程扇出，不在回放窗口之外持久化事件
type Gateway struct {
	cfg *Config

	logger     logger.Logger
	serializer serializer.Serializer
	transport  Transport

	limiter    *RateLimiter
	registry   *Registry
	replay     *ReplayBuffer
	dispatcher *Dispatcher

	broadcaster *Broadcaster
	control     *ControlHandler

	auth      Authenticator
	ipFilter  *security.IPFilter
	source    MetricsSource
	metrics   *Metrics
	promReg   *prometheus.Registry
	listeners *listenerSet

	now func() time.Time

	httpServer *http.Server

	mu      sync.Mutex
	started bool
	stopped bool
}

// Option 网关配置选项
type Option func(*Gateway)

// WithLogger 设置日志记录器
func WithLogger(log logger.Logger) Option {
	return func(g *Gateway) {
		g.logger = log
	}
}

// WithTransport 注入传输层实现
func WithTransport(t Transport) Option {
	return func(g *Gateway) {
		g.transport = t
	}
}

// WithMetricsSource 注入进程指标来源
// 网关在快照上补充会话数、投递总数和缓冲占用
func WithMetricsSource(src MetricsSource) Option {
	return func(g *Gateway) {
		g.source = src
	}
}

// WithPromRegistry 指定 Prometheus 注册表
func WithPromRegistry(reg *prometheus.Registry) Option {
	return func(g *Gateway) {
		g.promReg = reg
	}
}

// WithNow 替换时间源，用于确定性测试
func WithNow(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// NewGateway 创建网关
func NewGateway(cfg *Config, opts ...Option) (*Gateway, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	g := &Gateway{
		cfg:        merged,
		logger:     logger.Default().Named("stream.gateway"),
		serializer: serializer.Default(),
		promReg:    prometheus.NewRegistry(),
		listeners:  &listenerSet{},
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(g)
	}

	auth, err := NewAuthenticator(merged.Auth)
	if err != nil {
		return nil, err
	}
	g.auth = auth

	if merged.IPFilter != nil {
		ipFilter, err := security.NewIPFilter(merged.IPFilter)
		if err != nil {
			return nil, err
		}
		g.ipFilter = ipFilter
	}

	g.metrics = NewMetrics(g.promReg)
	g.limiter = NewRateLimiter(WithLimiterNow(g.now))
	g.registry = NewRegistry(g.limiter, merged.RateLimit.maxConnections())
	g.replay = NewReplayBuffer(merged.Replay.Capacity)

	g.dispatcher = NewDispatcher(g.registry, g.replay, g.limiter, merged.RateLimit)
	g.dispatcher.serializer = g.serializer
	g.dispatcher.logger = g.logger.Named("dispatch")
	g.dispatcher.metrics = g.metrics
	g.dispatcher.listeners = g.listeners
	g.dispatcher.now = g.now
	g.dispatcher.onDeliveryFailure = g.onDeliveryFailure

	g.broadcaster = NewBroadcaster(MetricsSourceFunc(g.snapshot), g.registry, merged.BroadcastInterval)
	g.broadcaster.serializer = g.serializer
	g.broadcaster.logger = g.logger.Named("broadcast")
	g.broadcaster.metrics = g.metrics
	g.broadcaster.now = g.now

	g.control = NewControlHandler(g.broadcaster)
	g.control.serializer = g.serializer
	g.control.logger = g.logger.Named("control")
	g.control.now = g.now

	return g, nil
}

// Subscribe 注册生命周期事件监听器
func (g *Gateway) Subscribe(l Listener) {
	g.listeners.add(l)
}

// Publish 分发一条上游日志事件
// 网关关闭后是空操作
func (g *Gateway) Publish(ev *Event) {
	g.dispatcher.Publish(ev)
}

// Start 绑定监听并开始接受连接
// 绑定失败原样返回底层错误，网关保持未启动状态
func (g *Gateway) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return ErrGatewayClosed
	}
	if g.started {
		return ErrAlreadyStarted
	}
	if g.cfg.Port <= 0 {
		return ErrInvalidConfig
	}
	if g.transport == nil {
		return ErrInvalidConfig
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", g.cfg.Port))
	if err != nil {
		return fmt.Errorf("stream: bind port %d: %w", g.cfg.Port, err)
	}

	mux := http.NewServeMux()
	mux.Handle(g.cfg.Path, g.transport.Handler(g.HandleConn))
	if path := valOr(g.cfg.MetricsPath, ""); path != "" {
		mux.Handle(path, promhttp.HandlerFor(g.promReg, promhttp.HandlerOpts{}))
	}

	g.httpServer = &http.Server{Handler: mux}
	go func() {
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			g.logger.Error("gateway http server exited", "error", err)
		}
	}()

	if valOr(g.cfg.EnableMetrics, false) {
		g.broadcaster.Start()
	}

	g.started = true
	g.logger.Info("gateway started",
		"port", g.cfg.Port,
		"path", g.cfg.Path,
		"max_connections", g.cfg.RateLimit.maxConnections(),
	)
	return nil
}

// Stop 优雅关停
// 以关停原因关闭所有会话，取消定时任务并释放监听；幂等，
// 之后的 Publish 和入站连接都是空操作
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return nil
	}
	g.stopped = true
	g.mu.Unlock()

	g.dispatcher.Close()
	g.broadcaster.Stop()

	for _, sess := range g.registry.Drain() {
		sess.conn.Close(CloseNormal, "server shutting down")
		g.metrics.OnSessionClosed()
		g.listeners.notifyDisconnected(sess, nil)
	}

	if g.transport != nil {
		g.transport.Close()
	}

	var err error
	if g.httpServer != nil {
		err = g.httpServer.Shutdown(ctx)
	}

	g.logger.Info("gateway stopped")
	return err
}

// HandleConn 处理一个已升级的入站连接
// 准入检查 -> 认证 -> 建会话 -> 原子回放并注册 -> 欢迎确认
func (g *Gateway) HandleConn(conn Conn, r *http.Request) {
	if g.isStopped() {
		conn.Close(CloseNormal, "server shutting down")
		return
	}

	// 来源名单检查在一切准入逻辑之前
	if g.ipFilter != nil && !g.ipFilter.AllowRequest(r) {
		g.rejectConn(conn, rejectReasonIPFilter, "source address not allowed")
		return
	}

	// 准入：并发会话数达到上限立即拒绝，不创建会话
	if max := g.cfg.RateLimit.maxConnections(); max > 0 && g.registry.Count() >= max {
		g.rejectConn(conn, rejectReasonCapacity, "connection limit reached")
		return
	}

	// 认证：策略未配置时连接即视为已认证
	if g.auth != nil {
		if err := g.auth.Authenticate(r); err != nil {
			g.rejectConn(conn, rejectReasonAuth, "authentication failed")
			return
		}
	}

	sess := NewSession(conn, g.cfg.Filters, true, g.now())

	replayed, err := g.dispatcher.Attach(sess)
	if err != nil {
		// 并发接入挤掉了提前的容量检查，以注册时的判定为准
		if err == ErrAdmissionRejected {
			g.rejectConn(conn, rejectReasonCapacity, "connection limit reached")
			return
		}
		conn.Close(CloseNormal, "server shutting down")
		return
	}

	g.sendWelcome(sess, replayed)
	g.metrics.OnSessionOpened()
	g.listeners.notifyConnected(sess)

	// 注册完成后才启动读写循环：传输层在 Start 内立即死亡时，
	// 关闭回调能在注册表里找到会话并完整注销，不会留下占位的
	// 死会话。Start 之前的入站字节由传输层缓冲
	conn.Start(
		func(data []byte) { g.control.Handle(sess, data) },
		func(err error) { g.removeSession(sess, err) },
	)

	g.logger.Info("session connected",
		"session_id", sess.ID(),
		"remote_addr", sess.RemoteAddr(),
		"replayed", replayed,
	)
}

// rejectConn 以策略违规码拒绝连接
func (g *Gateway) rejectConn(conn Conn, reason, text string) {
	g.metrics.OnRejected(reason)
	g.logger.Warn("connection rejected",
		"reason", reason,
		"conn_id", conn.ID(),
		"remote_addr", conn.RemoteAddr(),
	)
	conn.Close(ClosePolicyViolation, text)
}

// sendWelcome 发送欢迎确认
func (g *Gateway) sendWelcome(sess *Session, replayed int) {
	msg := newMessageAt(MessageTypeHeartbeat, &ackPayload{
		Status:    "connected",
		SessionID: sess.ID(),
		Replayed:  replayed,
		Filters:   sess.Filter(),
	}, g.now())

	data, err := g.serializer.Serialize(msg)
	if err != nil {
		g.logger.Error("failed to encode welcome message", "error", err)
		return
	}
	sess.conn.Send(data)
}

// removeSession 注销会话
// 传输层关闭回调和分发失败都会走到这里，重复调用安全
func (g *Gateway) removeSession(sess *Session, cause error) {
	if _, ok := g.registry.Remove(sess.ID()); !ok {
		return
	}

	g.metrics.OnSessionClosed()
	g.listeners.notifyDisconnected(sess, cause)

	g.logger.Info("session disconnected",
		"session_id", sess.ID(),
		"delivered", sess.Delivered(),
		"error", cause,
	)
}

// onDeliveryFailure 分发失败的会话按死亡处理
func (g *Gateway) onDeliveryFailure(sess *Session, err error) {
	g.removeSession(sess, err)
	sess.conn.Close(CloseInternalError, "delivery failure")
}

// snapshot 构造指标快照
// 进程部分来自注入的指标来源，网关部分就地补充
func (g *Gateway) snapshot() *Snapshot {
	var snap *Snapshot
	if g.source != nil {
		snap = g.source.Collect()
	}
	if snap == nil {
		snap = &Snapshot{}
	}

	snap.ActiveSessions = g.registry.Count()
	snap.TotalDelivered = g.dispatcher.TotalDelivered()
	snap.ReplaySize = g.replay.Len()
	snap.ReplayCapacity = g.replay.Cap()
	return snap
}

// Registry 返回会话注册表（只读用途）
func (g *Gateway) Registry() *Registry {
	return g.registry
}

func (g *Gateway) isStopped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopped
}
