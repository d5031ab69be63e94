// pkg/stream/ratelimit.go
package stream

import (
	"sync"
	"time"
)

// RateLimiter 基于滑动窗口的每会话出站限流器
// 每个会话维护 1 秒和 1 分钟两个独立键控的时间戳窗口，分别判定；
// 任一窗口超限即拒绝，只影响该会话
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*sendWindow
	now     func() time.Time
}

// sendWindow 单个会话的发送记录
type sendWindow struct {
	perSecond []time.Time
	perMinute []time.Time
}

// RateLimiterOption 限流器配置选项
type RateLimiterOption func(*RateLimiter)

// WithLimiterNow 替换时间源，用于确定性测试
func WithLimiterNow(now func() time.Time) RateLimiterOption {
	return func(l *RateLimiter) {
		l.now = now
	}
}

// NewRateLimiter 创建限流器
func NewRateLimiter(opts ...RateLimiterOption) *RateLimiter {
	l := &RateLimiter{
		windows: make(map[string]*sendWindow),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TryConsume 尝试为一次发送取得许可
// maxPerSecond/maxPerMinute <= 0 表示该档位不限制；
// 许可成功时记录时间戳，失败时不产生任何副作用
func (l *RateLimiter) TryConsume(sessionID string, maxPerSecond, maxPerMinute int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[sessionID]
	if !ok {
		w = &sendWindow{}
		l.windows[sessionID] = w
	}

	now := l.now()
	w.perSecond = prune(w.perSecond, now.Add(-time.Second))
	w.perMinute = prune(w.perMinute, now.Add(-time.Minute))

	if maxPerSecond > 0 && len(w.perSecond) >= maxPerSecond {
		return false
	}
	if maxPerMinute > 0 && len(w.perMinute) >= maxPerMinute {
		return false
	}

	w.perSecond = append(w.perSecond, now)
	w.perMinute = append(w.perMinute, now)
	return true
}

// Release 丢弃会话的全部限流状态
// 必须在每次会话移除时调用，否则键空间无界增长
func (l *RateLimiter) Release(sessionID string) {
	l.mu.Lock()
	delete(l.windows, sessionID)
	l.mu.Unlock()
}

// Tracked 检查会话是否还有限流状态
func (l *RateLimiter) Tracked(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.windows[sessionID]
	return ok
}

// prune 裁剪窗口，保留 cutoff 之后的时间戳
// 时间戳按记录顺序递增，找到第一个保留位置即可整段截断
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && !stamps[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[idx:]...)
}
