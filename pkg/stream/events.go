// pkg/stream/events.go
package stream

import "sync"

// Listener 网关生命周期事件监听器
// 需要连接/断开/分发通知的组件（如外部监控）显式注册，
// 回调在网关的工作路径上同步执行，实现必须不阻塞
type Listener interface {
	OnSessionConnected(sess *Session)
	OnSessionDisconnected(sess *Session, reason error)
	OnLogStreamed(sess *Session, msg *Message)
}

// ListenerFuncs 以函数字段实现 Listener，未设置的回调被忽略
type ListenerFuncs struct {
	Connected    func(sess *Session)
	Disconnected func(sess *Session, reason error)
	LogStreamed  func(sess *Session, msg *Message)
}

var _ Listener = (*ListenerFuncs)(nil)

func (f *ListenerFuncs) OnSessionConnected(sess *Session) {
	if f.Connected != nil {
		f.Connected(sess)
	}
}

func (f *ListenerFuncs) OnSessionDisconnected(sess *Session, reason error) {
	if f.Disconnected != nil {
		f.Disconnected(sess, reason)
	}
}

func (f *ListenerFuncs) OnLogStreamed(sess *Session, msg *Message) {
	if f.LogStreamed != nil {
		f.LogStreamed(sess, msg)
	}
}

// listenerSet 已注册监听器集合
type listenerSet struct {
	mu        sync.RWMutex
	listeners []Listener
}

func (s *listenerSet) add(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

func (s *listenerSet) notifyConnected(sess *Session) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.listeners {
		l.OnSessionConnected(sess)
	}
}

func (s *listenerSet) notifyDisconnected(sess *Session, reason error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.listeners {
		l.OnSessionDisconnected(sess, reason)
	}
}

func (s *listenerSet) notifyStreamed(sess *Session, msg *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.listeners {
		l.OnLogStreamed(sess, msg)
	}
}
