// pkg/stream/broadcaster.go
package stream

import (
	"sync"
	"time"

	"github.com/lk2023060901/logstream/pkg/logger"
	"github.com/lk2023060901/logstream/pkg/serializer"
)

// Snapshot 指标快照
type Snapshot struct {
	// 进程指标
	UptimeSeconds float64 `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryBytes   uint64  `json:"memory_bytes"`
	MemoryPercent float64 `json:"memory_percent"`
	Goroutines    int     `json:"goroutines"`

	// 网关指标
	ActiveSessions int   `json:"active_sessions"`
	TotalDelivered int64 `json:"total_delivered"`
	ReplaySize     int   `json:"replay_size"`
	ReplayCapacity int   `json:"replay_capacity"`
}

// MetricsSource 指标来源
// 网关同步拉取，实现必须快速返回且不阻塞
type MetricsSource interface {
	Collect() *Snapshot
}

// MetricsSourceFunc 以函数实现 MetricsSource
type MetricsSourceFunc func() *Snapshot

// Collect 调用底层函数
func (f MetricsSourceFunc) Collect() *Snapshot {
	return f()
}

// Broadcaster 指标广播器
// 按固定间隔向所有会话推送 metrics 消息，绕过限流器和过滤器；
// 推送失败静默忽略，会话死亡由传输层关闭回调处理
type Broadcaster struct {
	source     MetricsSource
	registry   *Registry
	serializer serializer.Serializer
	logger     logger.Logger
	metrics    *Metrics
	interval   time.Duration
	now        func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewBroadcaster 创建广播器
func NewBroadcaster(source MetricsSource, registry *Registry, interval time.Duration) *Broadcaster {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Broadcaster{
		source:     source,
		registry:   registry,
		serializer: serializer.Default(),
		logger:     logger.NewNoop(),
		interval:   interval,
		now:        time.Now,
	}
}

// Start 启动周期广播
func (b *Broadcaster) Start() {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.stopCh = make(chan struct{})
	stopCh := b.stopCh
	b.mu.Unlock()

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				b.broadcast()
			case <-stopCh:
				return
			}
		}
	}()
}

// Stop 停止周期广播，幂等
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		close(b.stopCh)
		b.running = false
	}
}

// broadcast 推送一次快照给所有会话
func (b *Broadcaster) broadcast() {
	data, err := b.encodeSnapshot()
	if err != nil {
		b.logger.Error("failed to encode metrics snapshot", "error", err)
		return
	}

	b.registry.Range(func(s *Session) bool {
		s.conn.Send(data)
		return true
	})
	b.metrics.OnBroadcast()
}

// PushTo 按需推送一次快照给单个会话
func (b *Broadcaster) PushTo(sess *Session) error {
	data, err := b.encodeSnapshot()
	if err != nil {
		return err
	}
	return sess.conn.Send(data)
}

// encodeSnapshot 拉取并编码快照
func (b *Broadcaster) encodeSnapshot() ([]byte, error) {
	snap := b.source.Collect()
	msg := newMessageAt(MessageTypeMetrics, snap, b.now())
	return b.serializer.Serialize(msg)
}
