package logger

import (
	"os"
	"sync/atomic"
)

// holder boxes a Logger, since atomic.Value rejects differing concrete types.
type holder struct {
	Logger
}

var defLogger atomic.Pointer[holder]

func init() {
	defLogger.Store(&holder{NewSlogWithWriter(os.Stderr, InfoLevel, false)})
}

func Debug(msg string, keysAndValues ...any) {
	GetLogger().Debug(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...any) {
	GetLogger().Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...any) {
	GetLogger().Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...any) {
	GetLogger().Error(msg, keysAndValues...)
}

func Fatal(msg string, keysAndValues ...any) {
	GetLogger().Fatal(msg, keysAndValues...)
}

func SetLevel(level Level) {
	GetLogger().SetLevel(level)
}

// SetLogger replaces the package-level logger returned by GetLogger.
// Sessions created afterwards pick it up as their default. It is safe to call
// while other goroutines log.
func SetLogger(l Logger) {
	if l != nil {
		defLogger.Store(&holder{l})
	}
}

func GetLogger() Logger {
	return defLogger.Load().Logger
}

func With(keyValues ...any) Logger {
	return GetLogger().With(keyValues...)
}
