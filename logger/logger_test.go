package logger

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLevelFromEnv(t *testing.T) {
	for val, want := range map[string]LogLevel{
		"trace": LevelTrace,
		"DEBUG": LevelDebug,
		"info":  LevelInfo,
		"Warn":  LevelWarn,
		"error": LevelError,
		"":      LevelInfo,
		"loud":  LevelInfo,
	} {
		t.Setenv("SCANKIT_LOG_LEVEL", val)
		assert.Equal(t, want, GetLevelFromEnv(), "level %q", val)
	}
}

func TestTestLoggerCaptures(t *testing.T) {
	log := NewTestLogger()
	log.Debug("cache hit for %s", "Э6.01.01.01")
	log.Warn("failed to persist cache: %s", "quota exceeded")
	log.Error("boom")

	entries := log.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"DEBUG", "WARNING", "ERROR"}, log.Severities())
	assert.Equal(t, "cache hit for Э6.01.01.01", entries[0].Formatted())
}

func TestTestLoggerWithMetadata(t *testing.T) {
	log := NewTestLogger()
	child := log.With(map[string]interface{}{"badge": "W123"})
	child.Info("hello")
	// Derived loggers share the parent's buffer so nothing is lost.
	require.Len(t, log.Entries(), 1)
	assert.Equal(t, "hello", log.Entries()[0].Message)
}

func TestTestLoggerConcurrent(t *testing.T) {
	log := NewTestLogger()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				log.Debug("worker %d iteration %d", n, j)
			}
		}(i)
	}
	wg.Wait()
	assert.Len(t, log.Entries(), 400)
	assert.Len(t, log.Severities(), 400)
}

func TestJSONEntryString(t *testing.T) {
	ts := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	entry := JSONLogEntry{
		Timestamp: ts,
		Message:   "queued submission",
		Severity:  "WARNING",
		Component: "[outbox]",
	}
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(entry.String()), &decoded))
	assert.Equal(t, "queued submission", decoded["message"])
	assert.Equal(t, "WARNING", decoded["severity"])
	assert.Equal(t, "[outbox]", decoded["component"])
}

func TestJSONEntryDefaultSeverity(t *testing.T) {
	entry := JSONLogEntry{Message: "hello"}
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(entry.String()), &decoded))
	assert.Equal(t, "INFO", decoded["severity"])
}

func TestColorCodesAreEscapeSequences(t *testing.T) {
	for i, code := range []string{
		Reset, Red, Green, Magenta, BlueBold, MagentaBold,
		RedBold, YellowBold, WhiteBold, CyanBold, Gray, Purple,
	} {
		assert.True(t, strings.HasPrefix(code, "\x1b["), "color %d", i)
	}
}

func TestConsoleLoggerClonesOnWith(t *testing.T) {
	base := NewConsoleLogger(LevelError).(*consoleLogger)
	child := base.With(map[string]interface{}{"k": "v"}).(*consoleLogger)
	assert.Empty(t, base.metadata)
	assert.Equal(t, "v", child.metadata["k"])

	prefixed := base.WithPrefix("[cache]").(*consoleLogger)
	assert.Empty(t, base.prefixes)
	assert.Equal(t, []string{"[cache]"}, prefixed.prefixes)
	// Re-adding the same prefix is a no-op.
	again := prefixed.WithPrefix("[cache]").(*consoleLogger)
	assert.Equal(t, []string{"[cache]"}, again.prefixes)
}
