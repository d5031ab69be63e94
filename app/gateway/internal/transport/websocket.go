// app/gateway/internal/transport/websocket.go
package transport

import (
	"net/http"

	"github.com/lk2023060901/logstream/pkg/stream"
	"github.com/lk2023060901/logstream/pkg/websocket"
)

// 确保适配器满足网关的传输抽象
var _ stream.Transport = (*WebSocket)(nil)

// WebSocket 把 pkg/websocket 的 Acceptor 适配为网关的传输抽象
// 网关核心由此不依赖具体的 WebSocket 实现
type WebSocket struct {
	acceptor *websocket.Acceptor
}

// NewWebSocket 创建适配器
func NewWebSocket(acceptor *websocket.Acceptor) *WebSocket {
	return &WebSocket{acceptor: acceptor}
}

// Handler 返回升级入站请求的 http.Handler
func (t *WebSocket) Handler(onConn func(conn stream.Conn, r *http.Request)) http.Handler {
	return t.acceptor.Handler(func(conn *websocket.Connection, r *http.Request) {
		onConn(conn, r)
	})
}

// Close 停止接受新连接
func (t *WebSocket) Close() error {
	return t.acceptor.Close()
}
