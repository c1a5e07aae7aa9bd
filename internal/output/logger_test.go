package output

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, LogOptions{Level: "warn"})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.With("vu", 3).Warn("request failed",
		"iteration", 12,
		"error", errors.New("dial tcp 127.0.0.1:8000: connect: connection refused"),
		"took", 1500*time.Millisecond)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.NotContains(t, out, "\033[", "non-terminal output is never colored")
	assert.Contains(t, out, "WARN  request failed")
	assert.Contains(t, out, "vu=3")
	assert.Contains(t, out, "iteration=12")
	assert.Contains(t, out, `error="dial tcp 127.0.0.1:8000: connect: connection refused"`)
	assert.Contains(t, out, "took=1.5s")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestNewLogger_TextGroups(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, LogOptions{Level: "debug"})
	require.NoError(t, err)

	logger.WithGroup("http").Debug("response", "status", 500, slog.Group("timing", "total", "12ms"))

	out := buf.String()
	assert.Contains(t, out, "DEBUG response")
	assert.Contains(t, out, "http.status=500")
	assert.Contains(t, out, "http.timing.total=12ms")
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, LogOptions{Format: "json"})
	require.NoError(t, err)

	logger.Info("run started", "vus", 50)

	line := buf.String()
	require.True(t, gjson.Valid(line))
	assert.Equal(t, "INFO", gjson.Get(line, "level").String())
	assert.Equal(t, "run started", gjson.Get(line, "msg").String())
	assert.Equal(t, int64(50), gjson.Get(line, "vus").Int())
}

func TestNewLogger_InvalidOptions(t *testing.T) {
	_, err := NewLogger(&bytes.Buffer{}, LogOptions{Level: "loud"})
	assert.Error(t, err)

	_, err = NewLogger(&bytes.Buffer{}, LogOptions{Format: "xml"})
	assert.Error(t, err)
}
