// pkg/logger/default.go
package logger

import "sync"

var (
	defaultLogger Logger
	defaultMu     sync.RWMutex
)

// Default 返回默认 logger
// 未初始化时返回控制台 logger；构建失败则退化为 NoopLogger
func Default() Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	if l != nil {
		return l
	}

	built, err := New(&Config{Format: ConsoleFormat})
	if err != nil {
		return NewNoop()
	}
	SetDefault(built)
	return built
}

// SetDefault 设置默认 logger
func SetDefault(l Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}
