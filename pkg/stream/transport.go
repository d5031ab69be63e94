// pkg/stream/transport.go
package stream

import "net/http"

// 关闭码，与 RFC 6455 对齐
// 准入拒绝和认证失败使用策略违规码，优雅关停使用正常关闭码
const (
	CloseNormal          = 1000
	ClosePolicyViolation = 1008
	CloseInternalError   = 1011
)

// Conn 传输层连接抽象
// 分发和注册逻辑只依赖该接口，不感知具体的 WebSocket 实现
type Conn interface {
	// ID 连接唯一标识
	ID() string
	// RemoteAddr 远程地址
	RemoteAddr() string
	// Send 异步发送一条文本消息，不阻塞
	// 发送队列满或连接已关闭时返回错误
	Send(data []byte) error
	// Start 启动读写循环
	// onMessage 在每条入站消息上调用；onClose 在连接终止时调用一次
	Start(onMessage func(data []byte), onClose func(err error))
	// Close 发送带关闭码和原因的关闭帧并关闭连接，幂等
	Close(code int, reason string) error
}

// Transport 入站连接来源抽象，在构造网关时注入
type Transport interface {
	// Handler 返回升级入站请求并回调新连接的 http.Handler
	Handler(onConn func(conn Conn, r *http.Request)) http.Handler
	// Close 停止接受新连接
	Close() error
}
