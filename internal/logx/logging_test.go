package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsole(&buf, "debug").With(String("component", "monitor"))

	log.Warn("notify failed", Err(errors.New("boom")), Int("percent", 12))

	out := buf.String()
	assert.Contains(t, out, "notify failed")
	assert.Contains(t, out, "component=monitor")
	assert.Contains(t, out, "percent=12")
	assert.Contains(t, out, "boom")
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsole(&buf, "warn")

	log.Info("hidden")
	assert.Empty(t, buf.String())
	assert.False(t, log.Enabled(LevelInfo))
	assert.True(t, log.Enabled(LevelError))
}

func TestZeroLoggerIsNop(t *testing.T) {
	var log Logger
	assert.True(t, log.IsZero())
	log.Error("nothing happens")
	assert.False(t, Nop().IsZero())
}

func TestServiceFileSink(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "bato.log")

	svc, log := New(Config{Level: "info", File: path}, &console)
	log.Info("state changed", String("state", "Low"))
	require.NoError(t, svc.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(raw))

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "state changed", entry["message"])
	assert.Equal(t, "Low", entry["state"])
	assert.Contains(t, console.String(), "state changed")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelWarn, parseLevel("WARNING", LevelInfo))
	assert.Equal(t, LevelInfo, parseLevel("bogus", LevelInfo))
	assert.True(t, ValidLevel(""))
	assert.True(t, ValidLevel("debug"))
	assert.False(t, ValidLevel("loud"))
}

func TestServiceApplyFollowsDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	svc, root := New(Config{Level: "warn"}, &buf)
	defer svc.Close()
	log := root.With(String("component", "config"))

	log.Debug("before")
	assert.Empty(t, buf.String())

	svc.Apply(Config{Level: "debug"})
	log.Debug("after")
	assert.Contains(t, buf.String(), "after")
	assert.Contains(t, buf.String(), "component=config")
}

func TestReservedKeysDoNotShadowEntry(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "bato.log")

	svc, log := New(Config{Level: "info", File: path}, &console)
	log.Info("battery state changed", Uint32("level", 42), String("message", "other"))
	require.NoError(t, svc.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &entry))

	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "battery state changed", entry["message"])
	assert.EqualValues(t, 42, entry["field_level"])
	assert.Equal(t, "other", entry["field_message"])
	assert.Contains(t, console.String(), "INF")
	assert.Contains(t, console.String(), "field_level=42")
}
