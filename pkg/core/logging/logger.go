// Package logging provides the process-wide structured logger.
package logging

import (
	"sync"

	"go.uber.org/zap"
)

var (
	global *zap.SugaredLogger
	once   sync.Once
)

// L returns the process-wide sugared logger, building a sane production
// config on first use (or falling back to a no-op logger if zap itself
// cannot start, which should not happen outside of broken environments).
func L() *zap.SugaredLogger {
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.TimeKey = "ts"
		logger, err := cfg.Build()
		if err != nil {
			global = zap.NewNop().Sugar()
			return
		}
		global = logger.Sugar()
	})
	return global
}

// Named returns a child logger tagged with the given component name.
func Named(component string) *zap.SugaredLogger {
	return L().Named(component)
}

// Sync flushes any buffered log entries. Call on process shutdown.
func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}
