package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestDispatcherLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(*DispatcherLogger)
		level string
	}{
		{"debug", func(l *DispatcherLogger) { l.Debug("msg", "key1", "value1", "key2", 42) }, "debug"},
		{"info", func(l *DispatcherLogger) { l.Info("msg", "key1", "value1", "key2", 42) }, "info"},
		{"error", func(l *DispatcherLogger) { l.Error("msg", "key1", "value1", "key2", 42) }, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))
			tt.log(dl)

			entry := decodeLine(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "msg", entry["message"])
			assert.Equal(t, "value1", entry["key1"])
			assert.Equal(t, float64(42), entry["key2"])
		})
	}
}

func TestDispatcherLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))
	dl.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestToFields(t *testing.T) {
	fields := toFields([]any{"a", 1, 2, "skipped", "err", errors.New("boom"), "dangling"})
	assert.Equal(t, map[string]any{"a": 1, "err": "boom"}, fields)
}

func TestNewZerolog(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, "WARN")
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "shown", entry["message"])
	assert.Contains(t, entry, "time")

	assert.Equal(t, zerolog.InfoLevel, NewZerolog(&buf, "bogus").GetLevel())
}
