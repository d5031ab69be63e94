// pkg/stream/config_test.go
package stream

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty path", func(c *Config) { c.Path = "" }, true},
		{"relative path", func(c *Config) { c.Path = "stream" }, true},
		{"negative interval", func(c *Config) { c.BroadcastInterval = -time.Second }, true},
		{"relative metrics path", func(c *Config) { c.MetricsPath = ptrOf("metrics") }, true},
		{"metrics endpoint disabled", func(c *Config) { c.MetricsPath = ptrOf("") }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigMergeDefaults(t *testing.T) {
	g, _ := newTestGateway(t, &Config{
		Port:      9000,
		RateLimit: RateLimitConfig{MaxLogsPerSecond: ptrOf(50)},
	})

	// 用户字段覆盖，缺省字段沿用默认值
	assert.Equal(t, 9000, g.cfg.Port)
	assert.Equal(t, 50, g.cfg.RateLimit.maxLogsPerSecond())
	assert.Equal(t, "/stream", g.cfg.Path)
	assert.Equal(t, 100, g.cfg.RateLimit.maxConnections())
	assert.Equal(t, DefaultReplayCapacity, g.cfg.Replay.Capacity)
	assert.Equal(t, "/metrics", valOr(g.cfg.MetricsPath, ""))
	assert.True(t, valOr(g.cfg.EnableMetrics, false))
}

func TestConfigMergeExplicitZeros(t *testing.T) {
	g, _ := newTestGateway(t, &Config{
		EnableMetrics: ptrOf(false),
		MetricsPath:   ptrOf(""),
		RateLimit:     RateLimitConfig{MaxConnections: ptrOf(0)},
	})

	// 显式填入的零值在合并后保留，不被默认值覆盖
	assert.False(t, valOr(g.cfg.EnableMetrics, true))
	assert.Equal(t, "", valOr(g.cfg.MetricsPath, "/metrics"))
	assert.Equal(t, 0, g.cfg.RateLimit.maxConnections())

	// 并发会话数 0 表示不限制
	for i := 0; i < 150; i++ {
		conn := connect(t, g, fmt.Sprintf("c%d", i), nil)
		assert.False(t, conn.isClosed())
	}
	assert.Equal(t, 150, g.Registry().Count())
}

func TestSessionFilterIsolation(t *testing.T) {
	base := &Filter{Levels: []string{"info"}}
	sessA, _ := newTestSession("a", base)
	sessB, _ := newTestSession("b", base)

	// 会话各持有默认过滤器的拷贝，互不影响
	sessA.SetFilter(sessA.Filter().Merge(&Filter{Levels: []string{"error"}}))
	assert.Equal(t, []string{"error"}, sessA.Filter().Levels)
	assert.Equal(t, []string{"info"}, sessB.Filter().Levels)
	assert.Equal(t, []string{"info"}, base.Levels)
}
