package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serverConfig struct {
	Host string
	Port int
	TLS  bool
}

type testConfig struct {
	Server   serverConfig
	Tags     []string
	Features map[string]bool
	Extra    *serverConfig
	Enabled  *bool
	Limit    *int
}

func TestMergeConfig(t *testing.T) {
	t.Run("nil handling", func(t *testing.T) {
		_, err := MergeConfig[testConfig](nil, nil)
		assert.Error(t, err)

		src := &testConfig{Server: serverConfig{Port: 1}}
		got, err := MergeConfig(nil, src)
		require.NoError(t, err)
		assert.Same(t, src, got)

		dst := &testConfig{Server: serverConfig{Port: 2}}
		got, err = MergeConfig(dst, nil)
		require.NoError(t, err)
		assert.Same(t, dst, got)
	})

	t.Run("zero value does not override", func(t *testing.T) {
		dst := &testConfig{Server: serverConfig{Host: "localhost", Port: 8080}}
		src := &testConfig{Server: serverConfig{Port: 9090, TLS: true}}

		got, err := MergeConfig(dst, src)
		require.NoError(t, err)

		assert.Equal(t, "localhost", got.Server.Host)
		assert.Equal(t, 9090, got.Server.Port)
		assert.True(t, got.Server.TLS)
	})

	t.Run("slice replaced wholesale", func(t *testing.T) {
		dst := &testConfig{Tags: []string{"a", "b"}}
		src := &testConfig{Tags: []string{"c"}}

		got, err := MergeConfig(dst, src)
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, got.Tags)
	})

	t.Run("map merged by key", func(t *testing.T) {
		dst := &testConfig{Features: map[string]bool{"x": true, "y": false}}
		src := &testConfig{Features: map[string]bool{"y": true, "z": true}}

		got, err := MergeConfig(dst, src)
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{"x": true, "y": true, "z": true}, got.Features)
	})

	t.Run("nil pointer adopted from src", func(t *testing.T) {
		dst := &testConfig{}
		src := &testConfig{Extra: &serverConfig{Port: 7}}

		got, err := MergeConfig(dst, src)
		require.NoError(t, err)
		require.NotNil(t, got.Extra)
		assert.Equal(t, 7, got.Extra.Port)
	})

	t.Run("scalar pointer replaced wholesale", func(t *testing.T) {
		on := true
		off := false
		hundred := 100
		zero := 0

		// 非 nil 标量指针表示显式设置，指向的零值必须覆盖默认值
		dst := &testConfig{Enabled: &on, Limit: &hundred}
		src := &testConfig{Enabled: &off, Limit: &zero}

		got, err := MergeConfig(dst, src)
		require.NoError(t, err)
		require.NotNil(t, got.Enabled)
		assert.False(t, *got.Enabled)
		require.NotNil(t, got.Limit)
		assert.Equal(t, 0, *got.Limit)

		// nil 标量指针沿用默认值
		got, err = MergeConfig(&testConfig{Enabled: &on}, &testConfig{})
		require.NoError(t, err)
		require.NotNil(t, got.Enabled)
		assert.True(t, *got.Enabled)
	})

	t.Run("pointer merged recursively", func(t *testing.T) {
		dst := &testConfig{Extra: &serverConfig{Host: "db", Port: 5432}}
		src := &testConfig{Extra: &serverConfig{Port: 5433}}

		got, err := MergeConfig(dst, src)
		require.NoError(t, err)
		assert.Equal(t, "db", got.Extra.Host)
		assert.Equal(t, 5433, got.Extra.Port)
	})
}
