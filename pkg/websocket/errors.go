// pkg/websocket/errors.go
package websocket

import "errors"

var (
	// 配置错误
	ErrInvalidConfig = errors.New("websocket: invalid config")

	// 连接错误
	ErrConnectionClosed = errors.New("websocket: connection closed")

	// 发送错误
	ErrSendQueueFull = errors.New("websocket: send queue full")

	// Acceptor 错误
	ErrAcceptorClosed = errors.New("websocket: acceptor closed")
	ErrUpgradeFailed  = errors.New("websocket: upgrade failed")
)
