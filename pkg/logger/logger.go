package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger *zap.Logger
	mu           sync.RWMutex
)

func init() { // usable before Init is called
	globalLogger = zap.NewNop()
}

// Init configures the global logger. Development mode switches to the console encoder
// with caller and stack annotations; otherwise JSON production output is used.
func Init(level string, development bool) error {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	built, err := cfg.Build()
	if err != nil {
		return err
	}

	Replace(built)
	return nil
}

// Replace swaps the global logger. Tests use it to install an observer core.
func Replace(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	globalLogger = l
}

// Logger returns the configured global logger.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()

	return globalLogger
}

// Sync flushes buffered log entries.
func Sync() error {
	return Logger().Sync()
}

// WithModule returns a child logger annotated with the module name.
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}
