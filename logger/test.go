package logger

import (
	"fmt"
	"sync"
)

type TestLogEntry struct {
	Severity  string
	Message   string
	Arguments []interface{}
}

// Formatted returns the fully interpolated message.
func (e TestLogEntry) Formatted() string {
	return fmt.Sprintf(e.Message, e.Arguments...)
}

// testSink is shared by a TestLogger and every logger derived from it
// so entries logged through a child are visible to the test. Guarded
// because code under test may log from multiple goroutines.
type testSink struct {
	mu      sync.Mutex
	entries []TestLogEntry
}

func (s *testSink) append(e TestLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

// TestLogger captures log entries in memory so tests can assert on them.
type TestLogger struct {
	metadata map[string]interface{}
	sink     *testSink
}

var _ Logger = (*TestLogger)(nil)

func (c *TestLogger) With(metadata map[string]interface{}) Logger {
	kv := make(map[string]interface{})
	for k, v := range c.metadata {
		kv[k] = v
	}
	for k, v := range metadata {
		kv[k] = v
	}
	return &TestLogger{metadata: kv, sink: c.sink}
}

func (c *TestLogger) WithPrefix(prefix string) Logger {
	return c
}

func (c *TestLogger) log(severity string, msg string, args ...interface{}) {
	c.sink.append(TestLogEntry{severity, msg, args})
}

func (c *TestLogger) Trace(msg string, args ...interface{}) {
	c.log("TRACE", msg, args...)
}

func (c *TestLogger) Debug(msg string, args ...interface{}) {
	c.log("DEBUG", msg, args...)
}

func (c *TestLogger) Info(msg string, args ...interface{}) {
	c.log("INFO", msg, args...)
}

func (c *TestLogger) Warn(msg string, args ...interface{}) {
	c.log("WARNING", msg, args...)
}

func (c *TestLogger) Error(msg string, args ...interface{}) {
	c.log("ERROR", msg, args...)
}

func (c *TestLogger) Fatal(msg string, args ...interface{}) {
	c.log("FATAL", msg, args...)
	panic("fatal log in test")
}

// Entries returns a copy of all captured entries in order.
func (c *TestLogger) Entries() []TestLogEntry {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	out := make([]TestLogEntry, len(c.sink.entries))
	copy(out, c.sink.entries)
	return out
}

// Severities returns the severities of all captured entries in order.
func (c *TestLogger) Severities() []string {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	out := make([]string, 0, len(c.sink.entries))
	for _, e := range c.sink.entries {
		out = append(out, e.Severity)
	}
	return out
}

// NewTestLogger returns a new Logger instance useful for testing
func NewTestLogger() *TestLogger {
	return &TestLogger{sink: &testSink{}}
}
