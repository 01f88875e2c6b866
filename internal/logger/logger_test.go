package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestInitializeWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "info", "json")
	defer Initialize("info", "text")

	WithMeeting("admission", "m1", "u1").Info("phase changed", "phase", "pending")
	Debug("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "phase changed", entry["msg"])
	assert.Equal(t, "admission", entry["component"])
	assert.Equal(t, "m1", entry["meetingID"])
	assert.Equal(t, "u1", entry["participantID"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestGet_InitializesDefault(t *testing.T) {
	mu.Lock()
	defaultLogger = nil
	mu.Unlock()

	require.NotNil(t, get())
	assert.True(t, get().Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, get().Enabled(context.Background(), slog.LevelDebug))
}
