// pkg/stream/stream_test.go
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeConn 测试用传输连接
type fakeConn struct {
	id string

	mu          sync.Mutex
	sent        [][]byte
	sendErr     error
	closed      bool
	closeCode   int
	closeReason string

	startErr  error
	onMessage func(data []byte)
	onClose   func(err error)
}

var errSendFailed = errors.New("send failed")

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string         { return c.id }
func (c *fakeConn) RemoteAddr() string { return "127.0.0.1:40000" }

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.sent = append(c.sent, buf)
	return nil
}

func (c *fakeConn) Start(onMessage func(data []byte), onClose func(err error)) {
	c.mu.Lock()
	c.onMessage = onMessage
	c.onClose = onClose
	err := c.startErr
	c.mu.Unlock()
	if err != nil {
		onClose(err)
	}
}

func (c *fakeConn) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	return nil
}

// failNextSends 之后的发送都返回错误
func (c *fakeConn) failNextSends() {
	c.failNextSendsWith(errSendFailed)
}

func (c *fakeConn) failNextSendsWith(err error) {
	c.mu.Lock()
	c.sendErr = err
	c.mu.Unlock()
}

// dieAtStart 让读写循环启动时立即触发关闭回调
func (c *fakeConn) dieAtStart(err error) {
	c.mu.Lock()
	c.startErr = err
	c.mu.Unlock()
}

// deliver 模拟一条入站控制消息
func (c *fakeConn) deliver(data []byte) {
	c.mu.Lock()
	fn := c.onMessage
	c.mu.Unlock()
	if fn != nil {
		fn(data)
	}
}

// disconnect 模拟传输层断开
func (c *fakeConn) disconnect(err error) {
	c.mu.Lock()
	fn := c.onClose
	c.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) closeInfo() (int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCode, c.closeReason
}

// wireMessage 解码后的线上消息
type wireMessage struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
}

// messages 解码全部已发送消息
func (c *fakeConn) messages(t *testing.T) []wireMessage {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := make([]wireMessage, 0, len(c.sent))
	for _, data := range c.sent {
		var m wireMessage
		require.NoError(t, json.Unmarshal(data, &m))
		msgs = append(msgs, m)
	}
	return msgs
}

// messagesOfType 按类型筛选已发送消息
func (c *fakeConn) messagesOfType(t *testing.T, typ MessageType) []wireMessage {
	t.Helper()
	var out []wireMessage
	for _, m := range c.messages(t) {
		if m.Type == string(typ) {
			out = append(out, m)
		}
	}
	return out
}

// fakeClock 可推进的测试时钟
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// newTestSession 构造挂在 fakeConn 上的会话
func newTestSession(id string, filter *Filter) (*Session, *fakeConn) {
	conn := newFakeConn(id)
	sess := NewSession(conn, filter, true, time.UnixMilli(1_700_000_000_000))
	return sess, conn
}

// testEvent 构造日志事件
func testEvent(level, service string, seq int) *Event {
	return &Event{
		Level:     level,
		Service:   service,
		Message:   fmt.Sprintf("event-%d", seq),
		Timestamp: 1_700_000_000_000 + int64(seq),
	}
}
