// Package log provides structured logging for xwake.
// It wraps zap with console output in development and JSON in production.
package log

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger *zap.SugaredLogger
)

// ParseLevel maps "debug", "info", "warn", "error" to a zap level.
// Unknown values fall back to info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

// Init initializes the global logger writing to stderr.
func Init(level string) {
	setup(level, zapcore.Lock(os.Stderr))
}

// InitFile initializes the global logger writing to path. The TUI uses it so
// log lines do not corrupt the alt-screen.
func InitFile(level, path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	setup(level, zapcore.Lock(f))
	return nil
}

func setup(level string, out zapcore.WriteSyncer) {
	var enc zapcore.Encoder
	if os.Getenv("XWAKE_ENV") == "production" {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	}
	core := zapcore.NewCore(enc, out, zap.NewAtomicLevelAt(ParseLevel(level)))

	mu.Lock()
	logger = zap.New(core).Sugar()
	mu.Unlock()
}

// L returns the global logger instance.
func L() *zap.SugaredLogger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l == nil {
		Init("info")
		mu.RLock()
		l = logger
		mu.RUnlock()
	}
	return l
}

// Sync flushes buffered entries.
func Sync() {
	_ = L().Sync()
}

// Debug logs at debug level.
func Debug(msg string, keysAndValues ...any) {
	L().Debugw(msg, keysAndValues...)
}

// Info logs at info level.
func Info(msg string, keysAndValues ...any) {
	L().Infow(msg, keysAndValues...)
}

// Warn logs at warn level.
func Warn(msg string, keysAndValues ...any) {
	L().Warnw(msg, keysAndValues...)
}

// Error logs at error level.
func Error(msg string, keysAndValues ...any) {
	L().Errorw(msg, keysAndValues...)
}

// With returns a logger with the given key/value pairs attached.
func With(keysAndValues ...any) *zap.SugaredLogger {
	return L().With(keysAndValues...)
}
