package mocklogger

import (
	"sync"

	"github.com/jyterencekim/decaton/logger"
)

var _ logger.Logger = (*MockLogger)(nil)

type LogEntry struct {
	Level   logger.LogLevel
	Message string
	KV      []any
}

// MockLogger records every entry for later inspection in tests.
// Safe for concurrent use.
type MockLogger struct {
	mu      sync.Mutex
	entries []LogEntry
	kv      []any
}

func New() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) Log(level logger.LogLevel, msg string, kv ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := LogEntry{Level: level, Message: msg}
	entry.KV = append(entry.KV, m.kv...)
	entry.KV = append(entry.KV, kv...)
	m.entries = append(m.entries, entry)
}

func (m *MockLogger) Level() logger.LogLevel {
	return logger.DebugLevel
}

func (m *MockLogger) With(kv ...any) logger.Logger {
	m.mu.Lock()
	defer m.mu.Unlock()

	child := &MockLogger{}
	child.kv = append(child.kv, m.kv...)
	child.kv = append(child.kv, kv...)
	child.entries = m.entries
	return child
}

// Entries returns a snapshot of everything logged so far.
func (m *MockLogger) Entries() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]LogEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *MockLogger) Debug(msg string, kv ...any) {
	m.Log(logger.DebugLevel, msg, kv...)
}

func (m *MockLogger) Info(msg string, kv ...any) {
	m.Log(logger.InfoLevel, msg, kv...)
}

func (m *MockLogger) Warn(msg string, kv ...any) {
	m.Log(logger.WarnLevel, msg, kv...)
}

func (m *MockLogger) Error(msg string, kv ...any) {
	m.Log(logger.ErrorLevel, msg, kv...)
}
