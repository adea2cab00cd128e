//go:build unit

package logger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEntry struct {
	level LogLevel
	msg   string
	kv    []any
}

type recordingBase struct {
	mu      sync.Mutex
	level   LogLevel
	entries []recordedEntry
}

func (b *recordingBase) Level() LogLevel { return b.level }

func (b *recordingBase) Log(level LogLevel, msg string, kv ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, recordedEntry{level: level, msg: msg, kv: kv})
}

func (b *recordingBase) snapshot() []recordedEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]recordedEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

func TestWrapLoggerLevels(t *testing.T) {
	base := &recordingBase{level: DebugLevel}
	log := WrapLogger(base)

	log.Debug("d")
	log.Info("i")
	log.Warn("w")
	log.Error("e")

	entries := base.snapshot()
	require.Len(t, entries, 4)
	assert.Equal(t, DebugLevel, entries[0].level)
	assert.Equal(t, InfoLevel, entries[1].level)
	assert.Equal(t, WarnLevel, entries[2].level)
	assert.Equal(t, ErrorLevel, entries[3].level)
}

func TestWithAttachesFields(t *testing.T) {
	base := &recordingBase{level: DebugLevel}
	log := WrapLogger(base).With("component", "runner")

	log.Info("started", "topics", 2)

	entries := base.snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, []any{"component", "runner", "topics", 2}, entries[0].kv)
}

func TestWithAccumulates(t *testing.T) {
	base := &recordingBase{level: DebugLevel}
	parent := WrapLogger(base).With("a", 1)
	child := parent.With("b", 2)

	child.Error("oops")
	parent.Warn("careful")

	entries := base.snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, []any{"a", 1, "b", 2}, entries[0].kv)
	assert.Equal(t, []any{"a", 1}, entries[1].kv, "child fields do not leak to the parent")
}

func TestWithNoFieldsReturnsSameLogger(t *testing.T) {
	base := &recordingBase{level: DebugLevel}
	log := WrapLogger(base)

	assert.Same(t, log, log.With())
}

func TestNoopLoggerIsSilent(t *testing.T) {
	log := NewNoopLogger()

	// must not panic, must accept fields
	log.Debug("msg", "k", "v")
	log.With("a", 1).Error("msg")
	assert.Equal(t, InfoLevel, log.Level())
}
