// pkg/stream/metrics.go
package stream

import "github.com/prometheus/client_golang/prometheus"

// Metrics 网关 Prometheus 指标
type Metrics struct {
	// 会话指标
	activeSessions prometheus.Gauge
	sessionsTotal  prometheus.Counter
	rejectedTotal  *prometheus.CounterVec

	// 投递指标
	deliveredTotal prometheus.Counter
	droppedTotal   *prometheus.CounterVec

	// 回放和广播指标
	replayOccupancy prometheus.Gauge
	broadcastsTotal prometheus.Counter
}

// NewMetrics 创建并注册网关指标
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "logstream",
			Subsystem: "gateway",
			Name:      "active_sessions",
			Help:      "Number of active sessions",
		}),
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "logstream",
			Subsystem: "gateway",
			Name:      "sessions_total",
			Help:      "Total number of admitted sessions",
		}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logstream",
			Subsystem: "gateway",
			Name:      "rejected_total",
			Help:      "Total number of rejected connection attempts",
		}, []string{"reason"}),
		deliveredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "logstream",
			Subsystem: "gateway",
			Name:      "delivered_total",
			Help:      "Total number of log messages delivered to sessions",
		}),
		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logstream",
			Subsystem: "gateway",
			Name:      "dropped_total",
			Help:      "Total number of log messages dropped per session",
		}, []string{"reason"}),
		replayOccupancy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "logstream",
			Subsystem: "gateway",
			Name:      "replay_buffer_entries",
			Help:      "Current number of entries in the replay buffer",
		}),
		broadcastsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "logstream",
			Subsystem: "gateway",
			Name:      "metrics_broadcasts_total",
			Help:      "Total number of metrics broadcasts",
		}),
	}

	registerer.MustRegister(
		m.activeSessions,
		m.sessionsTotal,
		m.rejectedTotal,
		m.deliveredTotal,
		m.droppedTotal,
		m.replayOccupancy,
		m.broadcastsTotal,
	)

	return m
}

// 以下方法对 nil 接收者安全，指标未启用时调用方无需判空

func (m *Metrics) OnSessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
	m.sessionsTotal.Inc()
}

func (m *Metrics) OnSessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

func (m *Metrics) OnRejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) OnDelivered() {
	if m == nil {
		return
	}
	m.deliveredTotal.Inc()
}

func (m *Metrics) OnDropped(reason string) {
	if m == nil {
		return
	}
	m.droppedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetReplayOccupancy(n int) {
	if m == nil {
		return
	}
	m.replayOccupancy.Set(float64(n))
}

func (m *Metrics) OnBroadcast() {
	if m == nil {
		return
	}
	m.broadcastsTotal.Inc()
}
