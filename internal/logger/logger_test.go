package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("chatclient", &buf)

	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "chatclient", entry["role"])
	assert.Equal(t, "hello", entry["message"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry, "func")
}

func TestComponent_AddsField(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("chatbot", &buf).Component("listener")

	l.Warn().Msg("decode broadcast")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "listener", entry["component"])
	assert.Equal(t, "chatbot", entry["role"])
	assert.Equal(t, "warn", entry["level"])
}

func TestWithLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger("chatclient", &buf).WithLevel("warn")
	require.NoError(t, err)

	l.Info().Msg("dropped")
	assert.Empty(t, buf.String())

	l.Error().Msg("kept")
	assert.Contains(t, buf.String(), "kept")

	_, err = l.WithLevel("loud")
	assert.Error(t, err)
}

func TestNop_DiscardsOutput(t *testing.T) {
	var buf bytes.Buffer
	l := Nop()
	l.Logger = l.Output(&buf)
	l.Info().Msg("discarded")
	assert.Empty(t, buf.String())
}

func TestNewConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger("chattui", &buf)
	l.Info().Str("topic", "geral").Msg("subscribed")
	assert.Contains(t, buf.String(), "subscribed")
	assert.Contains(t, buf.String(), "geral")
}

func TestOpen_WritesToFileAtLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.log")

	l, closer, err := Open("chatbot", "warn", path, false)
	require.NoError(t, err)
	l.Info().Msg("dropped")
	l.Warn().Msg("kept")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestOpen_BadLevel(t *testing.T) {
	_, _, err := Open("chatbot", "loud", "", false)
	assert.Error(t, err)
}
