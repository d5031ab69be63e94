// pkg/websocket/config.go
package websocket

import "time"

// AcceptorConfig Acceptor 配置
type AcceptorConfig struct {
	// 缓冲区大小
	ReadBufferSize  int `mapstructure:"read_buffer_size"`
	WriteBufferSize int `mapstructure:"write_buffer_size"`

	// 握手超时
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`

	// 传输层压缩（permessage-deflate，协商性质）
	EnableCompression bool `mapstructure:"enable_compression"`

	// 单条消息大小上限（字节）
	MaxMessageSize int64 `mapstructure:"max_message_size"`

	// 连接参数
	SendQueueSize int           `mapstructure:"send_queue_size"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	PingInterval  time.Duration `mapstructure:"ping_interval"`

	// 连接处理工作池大小
	WorkerPoolSize int `mapstructure:"worker_pool_size"`
}

// DefaultAcceptorConfig 默认配置
func DefaultAcceptorConfig() *AcceptorConfig {
	return &AcceptorConfig{
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
		HandshakeTimeout: 10 * time.Second,
		MaxMessageSize:   1 << 20,
		SendQueueSize:    256,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     30 * time.Second,
		WorkerPoolSize:   64,
	}
}

// Validate 验证配置
func (c *AcceptorConfig) Validate() error {
	if c.SendQueueSize <= 0 || c.WorkerPoolSize <= 0 {
		return ErrInvalidConfig
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.PingInterval < 0 {
		return ErrInvalidConfig
	}
	return nil
}
