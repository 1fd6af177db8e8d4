package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, "warn", "json")

	log.Info("dropped")
	log.Warn("kept", "group_id", "g-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "g-1", line["group_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("unknown"))
}

func TestTextLoggerWrites(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, "info", "text")
	log.Info("hello")
	assert.Contains(t, buf.String(), "hello")
}
