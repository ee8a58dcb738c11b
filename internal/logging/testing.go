package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger wraps Logger with observation so tests can assert on entries.
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

// NewTestLogger creates a logger for testing with full observation.
func NewTestLogger() *TestLogger {
	core, observed := observer.New(zapcore.DebugLevel)
	return &TestLogger{
		Logger:   &Logger{zap: zap.New(core), config: NewDefaultConfig()},
		observed: observed,
	}
}

// All returns all logged entries.
func (t *TestLogger) All() []observer.LoggedEntry {
	return t.observed.All()
}

// FilterMessage returns entries whose message contains msg.
func (t *TestLogger) FilterMessage(msg string) []observer.LoggedEntry {
	var out []observer.LoggedEntry
	for _, e := range t.observed.All() {
		if strings.Contains(e.Message, msg) {
			out = append(out, e)
		}
	}
	return out
}

// Reset clears all logged entries.
func (t *TestLogger) Reset() {
	t.observed.TakeAll()
}

// AssertLogged verifies an entry at level with a message containing msgContains.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	for _, e := range t.observed.All() {
		if e.Level == level && strings.Contains(e.Message, msgContains) {
			return
		}
	}
	tb.Errorf("expected %s log containing %q, got %d entries", level, msgContains, t.observed.Len())
}

// AssertNotLogged verifies no entry at level contains msgContains.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	for _, e := range t.observed.All() {
		if e.Level == level && strings.Contains(e.Message, msgContains) {
			tb.Errorf("unexpected %s log containing %q: %s", level, msgContains, e.Message)
		}
	}
}
