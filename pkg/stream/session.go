// pkg/stream/session.go
package stream

import (
	"sync"
	"sync/atomic"
	"time"
)

// Session 一条已接入连接的服务端表示
// 连接句柄归会话独占；过滤器只通过控制通道写入，其余组件只读
type Session struct {
	id        string
	conn      Conn
	createdAt time.Time

	// 活跃时间（unix 毫秒），每条入站控制消息更新
	lastActive atomic.Int64

	// 投递统计
	delivered atomic.Int64
	dropped   atomic.Int64

	authenticated bool

	mu     sync.RWMutex
	filter *Filter
}

// NewSession 创建会话
// 会话 ID 沿用连接 ID；defaultFilter 被深拷贝，后续修改互不影响
func NewSession(conn Conn, defaultFilter *Filter, authenticated bool, now time.Time) *Session {
	s := &Session{
		id:            conn.ID(),
		conn:          conn,
		createdAt:     now,
		authenticated: authenticated,
		filter:        defaultFilter.Clone(),
	}
	s.lastActive.Store(now.UnixMilli())
	return s
}

// ID 返回会话标识
func (s *Session) ID() string {
	return s.id
}

// CreatedAt 返回创建时间
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// LastActive 返回最近活跃时间
func (s *Session) LastActive() time.Time {
	return time.UnixMilli(s.lastActive.Load())
}

// Touch 更新活跃时间
func (s *Session) Touch(now time.Time) {
	s.lastActive.Store(now.UnixMilli())
}

// Authenticated 返回认证状态
func (s *Session) Authenticated() bool {
	return s.authenticated
}

// Filter 返回当前过滤器
// 过滤器整体替换、从不原地修改，返回的指针可安全读取
func (s *Session) Filter() *Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// SetFilter 整体替换过滤器
func (s *Session) SetFilter(f *Filter) {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
}

// Delivered 返回累计投递条数
func (s *Session) Delivered() int64 {
	return s.delivered.Load()
}

// Dropped 返回被限流丢弃的条数
func (s *Session) Dropped() int64 {
	return s.dropped.Load()
}

// RemoteAddr 返回连接远程地址
func (s *Session) RemoteAddr() string {
	return s.conn.RemoteAddr()
}

func (s *Session) addDelivered() {
	s.delivered.Add(1)
}

func (s *Session) addDropped() {
	s.dropped.Add(1)
}
