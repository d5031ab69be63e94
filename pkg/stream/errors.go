// pkg/stream/errors.go
package stream

import "errors"

var (
	// 配置错误
	ErrInvalidConfig     = errors.New("stream: invalid config")
	ErrInvalidAuthConfig = errors.New("stream: invalid auth config")

	// 生命周期错误
	ErrAlreadyStarted = errors.New("stream: gateway already started")
	ErrGatewayClosed  = errors.New("stream: gateway closed")

	// 准入错误
	ErrAdmissionRejected    = errors.New("stream: connection limit reached")
	ErrAuthenticationFailed = errors.New("stream: authentication failed")

	// 会话错误
	ErrSessionExists   = errors.New("stream: session already registered")
	ErrSessionNotFound = errors.New("stream: session not found")
)
