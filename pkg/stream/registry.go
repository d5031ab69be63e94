// pkg/stream/registry.go
package stream

import "sync"

// Registry 会话注册表
// 所有会话的增删都经过这里，分发引擎和控制通道共享同一份事实；
// Remove 在同一操作内释放该会话的限流状态，悬挂的限流条目属于正确性缺陷
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	limiter     *RateLimiter
	maxSessions int
}

// NewRegistry 创建注册表
// maxSessions <= 0 表示不限制并发会话数
func NewRegistry(limiter *RateLimiter, maxSessions int) *Registry {
	return &Registry{
		sessions:    make(map[string]*Session),
		limiter:     limiter,
		maxSessions: maxSessions,
	}
}

// Add 注册会话
// 容量已满返回 ErrAdmissionRejected，并发接入时以这里的判定为准
func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		return ErrAdmissionRejected
	}
	if _, ok := r.sessions[s.ID()]; ok {
		return ErrSessionExists
	}
	r.sessions[s.ID()] = s
	return nil
}

// Remove 注销会话并释放其限流状态
func (r *Registry) Remove(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	delete(r.sessions, id)
	r.limiter.Release(id)
	return s, true
}

// Get 获取会话
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Range 遍历会话，fn 返回 false 时停止
func (r *Registry) Range(fn func(s *Session) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if !fn(s) {
			return
		}
	}
}

// Count 返回当前会话数
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Drain 移除全部会话并释放限流状态，关停时使用
func (r *Registry) Drain() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	drained := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		delete(r.sessions, id)
		r.limiter.Release(id)
		drained = append(drained, s)
	}
	return drained
}
