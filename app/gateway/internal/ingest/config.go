// app/gateway/internal/ingest/config.go
package ingest

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrInvalidConfig 配置错误
var ErrInvalidConfig = errors.New("ingest: invalid config")

// Config 摄入服务配置
type Config struct {
	// 监听端口
	Port int `mapstructure:"port"`
	// Gin 运行模式 (debug/release/test)
	Mode string `mapstructure:"mode"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Port:         8081,
		Mode:         gin.ReleaseMode,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Port <= 0 {
		return ErrInvalidConfig
	}
	switch c.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode, "":
	default:
		return ErrInvalidConfig
	}
	return nil
}
