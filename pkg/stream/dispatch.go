// pkg/stream/dispatch.go
package stream

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lk2023060901/logstream/pkg/logger"
	"github.com/lk2023060901/logstream/pkg/serializer"
)

// 丢弃原因标签
const (
	dropReasonRateLimit  = "rate_limit"
	dropReasonSendFailed = "send_failed"
)

// Dispatcher 日志分发引擎
// Publish 与会话接入在同一互斥段内串行化，保证回放到实时流的
// 过渡既不丢也不重；会话之间的投递相互独立，单会话的丢弃或
// 限流不影响其他会话
type Dispatcher struct {
	mu sync.Mutex

	registry *Registry
	replay   *ReplayBuffer
	limiter  *RateLimiter
	limits   RateLimitConfig

	serializer serializer.Serializer
	logger     logger.Logger
	metrics    *Metrics
	listeners  *listenerSet

	now    func() time.Time
	closed atomic.Bool

	// 累计投递总数（跨会话）
	totalDelivered atomic.Int64

	// 发送失败回调，由网关设置为会话移除逻辑
	onDeliveryFailure func(sess *Session, err error)
}

// NewDispatcher 创建分发引擎
func NewDispatcher(registry *Registry, replay *ReplayBuffer, limiter *RateLimiter, limits RateLimitConfig) *Dispatcher {
	return &Dispatcher{
		registry:   registry,
		replay:     replay,
		limiter:    limiter,
		limits:     limits,
		serializer: serializer.Default(),
		logger:     logger.NewNoop(),
		listeners:  &listenerSet{},
		now:        time.Now,
	}
}

// Publish 分发一条上游日志事件
// 采样决策已在上游完成；引擎关闭后调用是空操作而非错误
func (d *Dispatcher) Publish(ev *Event) {
	if ev == nil || d.closed.Load() {
		return
	}

	msg := newMessageAt(MessageTypeLog, ev, d.now())
	data, err := d.serializer.Serialize(msg)
	if err != nil {
		d.logger.Error("failed to encode log message", "error", err)
		return
	}

	type failure struct {
		sess *Session
		err  error
	}
	var dead []failure

	d.mu.Lock()
	d.replay.Append(msg, ev)
	d.metrics.SetReplayOccupancy(d.replay.Len())

	d.registry.Range(func(s *Session) bool {
		if !s.Filter().Matches(ev) {
			return true
		}
		if !d.limiter.TryConsume(s.ID(), d.limits.maxLogsPerSecond(), d.limits.maxLogsPerMinute()) {
			s.addDropped()
			d.metrics.OnDropped(dropReasonRateLimit)
			return true
		}
		if err := s.conn.Send(data); err != nil {
			// 发送失败视为会话死亡，不重试
			dead = append(dead, failure{sess: s, err: err})
			d.metrics.OnDropped(dropReasonSendFailed)
			return true
		}
		s.addDelivered()
		d.totalDelivered.Add(1)
		d.metrics.OnDelivered()
		d.listeners.notifyStreamed(s, msg)
		return true
	})
	d.mu.Unlock()

	for _, f := range dead {
		d.logger.Warn("delivery failure, removing session", "session_id", f.sess.ID(), "error", f.err)
		if d.onDeliveryFailure != nil {
			d.onDeliveryFailure(f.sess, f.err)
		}
	}
}

// Attach 原子地回放缓冲并注册会话
// 注册和回放入队在同一临界区内完成，期间没有事件分发，
// 返回实际回放的条数
func (d *Dispatcher) Attach(sess *Session) (int, error) {
	if d.closed.Load() {
		return 0, ErrGatewayClosed
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.registry.Add(sess); err != nil {
		return 0, err
	}

	msgs := d.replay.Drain(sess.Filter())
	replayed := 0
	for _, msg := range msgs {
		data, err := d.serializer.Serialize(msg)
		if err != nil {
			continue
		}
		if err := sess.conn.Send(data); err != nil {
			break
		}
		sess.addDelivered()
		d.totalDelivered.Add(1)
		replayed++
	}
	return replayed, nil
}

// TotalDelivered 返回累计投递总数
func (d *Dispatcher) TotalDelivered() int64 {
	return d.totalDelivered.Load()
}

// Close 关闭分发引擎，之后的 Publish 都是空操作
func (d *Dispatcher) Close() {
	d.closed.Store(true)
}
