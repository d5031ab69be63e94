// pkg/stream/config.go
package stream

import (
	"strings"
	"time"

	"github.com/lk2023060901/logstream/pkg/security"
)

// Config 网关配置
// 零值有业务含义的字段用指针声明：nil 沿用默认值，
// 显式填入的零值（关闭开关、不限制）在与默认配置合并后保留
type Config struct {
	// 监听端口
	Port int `mapstructure:"port"`
	// WebSocket 升级路径
	Path string `mapstructure:"path"`

	// 认证策略，nil 表示连接建立即视为已认证
	Auth *AuthConfig `mapstructure:"auth"`

	// 来源 IP 名单，nil 表示不检查
	IPFilter *security.IPFilterConfig `mapstructure:"ip_filter"`

	// 新会话的默认过滤器
	Filters *Filter `mapstructure:"filters"`

	// 限流配置
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// 回放缓冲配置
	Replay ReplayConfig `mapstructure:"replay"`

	// 传输层压缩（协商性质，由传输实现决定是否生效）
	Compression bool `mapstructure:"compression"`

	// 指标广播开关，nil 沿用默认（开启）
	EnableMetrics *bool `mapstructure:"enable_metrics"`
	// 指标广播间隔
	BroadcastInterval time.Duration `mapstructure:"broadcast_interval"`

	// Prometheus 指标端点路径，显式空字符串关闭该端点
	MetricsPath *string `mapstructure:"metrics_path"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 最大并发会话数，显式 0 表示不限制
	MaxConnections *int `mapstructure:"max_connections"`
	// 每会话每秒最大投递条数，显式 0 表示不限制
	MaxLogsPerSecond *int `mapstructure:"max_logs_per_second"`
	// 每会话每分钟最大投递条数，显式 0 表示不限制
	MaxLogsPerMinute *int `mapstructure:"max_logs_per_minute"`
}

func (c RateLimitConfig) maxConnections() int   { return valOr(c.MaxConnections, 0) }
func (c RateLimitConfig) maxLogsPerSecond() int { return valOr(c.MaxLogsPerSecond, 0) }
func (c RateLimitConfig) maxLogsPerMinute() int { return valOr(c.MaxLogsPerMinute, 0) }

// ReplayConfig 回放缓冲配置
type ReplayConfig struct {
	// 缓冲容量（条）
	Capacity int `mapstructure:"capacity"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Path: "/stream",
		RateLimit: RateLimitConfig{
			MaxConnections:   ptrOf(100),
			MaxLogsPerSecond: ptrOf(10),
			MaxLogsPerMinute: ptrOf(300),
		},
		Replay: ReplayConfig{
			Capacity: DefaultReplayCapacity,
		},
		EnableMetrics:     ptrOf(true),
		BroadcastInterval: 5 * time.Second,
		MetricsPath:       ptrOf("/metrics"),
	}
}

// Validate 验证配置
// 端口只在 Start 绑定监听时要求
func (c *Config) Validate() error {
	if c.Path == "" || !strings.HasPrefix(c.Path, "/") {
		return ErrInvalidConfig
	}
	if c.BroadcastInterval < 0 {
		return ErrInvalidConfig
	}
	if path := valOr(c.MetricsPath, ""); path != "" && !strings.HasPrefix(path, "/") {
		return ErrInvalidConfig
	}
	return nil
}

// ptrOf 返回 v 的指针，用于填写指针型配置字段
func ptrOf[T any](v T) *T {
	return &v
}

// valOr 解引用 p，nil 时返回 fallback
func valOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
