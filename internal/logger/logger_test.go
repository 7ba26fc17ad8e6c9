package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo, time.UTC)

	log.Debug("hidden")
	log.Info("shown", String("camera", "cam-1"), Int("persons", 3))
	log.Error("failed", Error(errors.New("boom")))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "shown", lines[0]["msg"])
	assert.Equal(t, "cam-1", lines[0]["camera"])
	assert.InDelta(t, 3, lines[0]["persons"], 0)
	assert.Equal(t, "boom", lines[1]["error"])
}

func TestSlogLogger_ModuleAndFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelTrace, time.UTC).
		Module("notification").
		Module("dispatcher").
		With(String("batch_id", "b-1"))

	log.Trace("batch started", Float64("confidence", 0.123456))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "notification.dispatcher", lines[0]["module"])
	assert.Equal(t, "b-1", lines[0]["batch_id"])
	assert.Equal(t, "TRACE", lines[0]["level"])
	assert.InDelta(t, 0.123, lines[0]["confidence"], 1e-9)
}

func TestTextHandler_Format(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	h := newTextHandler(buf, slog.LevelDebug, time.UTC)
	l := &moduleLogger{module: "compliance", logger: slog.New(h), level: slog.LevelDebug}

	l.Warn("person evaluated", String("missing", "helmet vest"), Int("frame", 7))

	assert.Equal(t, "WARN  [compliance] person evaluated missing=\"helmet vest\" frame=7\n", buf.String())
}

func TestCentralLogger_ModuleLevelOverride(t *testing.T) {
	t.Parallel()

	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "warn",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: t.TempDir() + "/test.log", Level: "warn"},
		ModuleLevels: map[string]string{"datastore": "debug"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cl.Close() })

	ds, ok := cl.Module("datastore").(*moduleLogger)
	require.True(t, ok)
	assert.Equal(t, slog.LevelDebug, ds.level)

	other, ok := cl.Module("pipeline").(*moduleLogger)
	require.True(t, ok)
	assert.Equal(t, slog.LevelWarn, other.level)
}

func TestNewCentralLogger_InvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)
}
