//go:build unit

package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/jyterencekim/decaton/logger"
	mocklogger "github.com/jyterencekim/decaton/logger/mock"
)

func TestKgoLoggerRoutesLevels(t *testing.T) {
	ml := mocklogger.New()
	kl := kgoLogger{l: ml}

	kl.Log(kgo.LogLevelError, "broker down", "broker", 1)
	kl.Log(kgo.LogLevelWarn, "rebalance")
	kl.Log(kgo.LogLevelInfo, "joined group")
	kl.Log(kgo.LogLevelDebug, "fetch")

	entries := ml.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, logger.ErrorLevel, entries[0].Level)
	assert.Equal(t, "broker down", entries[0].Message)
	assert.Equal(t, logger.WarnLevel, entries[1].Level)
	assert.Equal(t, logger.InfoLevel, entries[2].Level)
	assert.Equal(t, logger.DebugLevel, entries[3].Level)
}

func TestKgoLoggerLevel(t *testing.T) {
	kl := newKgoLogger(mocklogger.New())
	assert.Equal(t, kgo.LogLevelDebug, kl.Level())
}
