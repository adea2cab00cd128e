package kafka

import (
	"github.com/jyterencekim/decaton/logger"
	"github.com/twmb/franz-go/pkg/kgo"
)

// kgoLogger routes franz-go's internal logging through the engine's logger
// so broker chatter obeys the application's level filtering.
type kgoLogger struct {
	l logger.Logger
}

var _ kgo.Logger = kgoLogger{}

func newKgoLogger(l logger.Logger) kgoLogger {
	return kgoLogger{l: l.With("component", "kgo")}
}

func (kl kgoLogger) Level() kgo.LogLevel {
	switch kl.l.Level() {
	case logger.DebugLevel:
		return kgo.LogLevelDebug
	case logger.InfoLevel:
		return kgo.LogLevelInfo
	case logger.ErrorLevel:
		return kgo.LogLevelError
	default:
		return kgo.LogLevelWarn
	}
}

func (kl kgoLogger) Log(level kgo.LogLevel, msg string, args ...any) {
	switch level {
	case kgo.LogLevelError:
		kl.l.Error(msg, args...)
	case kgo.LogLevelWarn:
		kl.l.Warn(msg, args...)
	case kgo.LogLevelInfo:
		kl.l.Info(msg, args...)
	default:
		kl.l.Debug(msg, args...)
	}
}
