package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/minijs/internal/logging"
)

func TestLevelFromString(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelError,
	}
	for name, want := range tests {
		assert.Equal(t, want, logging.LevelFromString(name), name)
	}
}

func TestNoneDiscards(t *testing.T) {
	var stderr bytes.Buffer
	logger, closeFn := logging.New(logging.Options{Level: logging.LevelNone, Stderr: &stderr})
	defer closeFn()
	logger.Error("boom")
	assert.Empty(t, stderr.String())
}

func TestTextToStderrFiltersByLevel(t *testing.T) {
	var stderr bytes.Buffer
	logger, closeFn := logging.New(logging.Options{Level: "warn", Format: "text", Stderr: &stderr})
	defer closeFn()
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)
	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, stderr.String(), "msg=shown k=1")
}

func TestJSONFormat(t *testing.T) {
	var stderr bytes.Buffer
	logger, closeFn := logging.New(logging.Options{Level: "debug", Format: "json", Stderr: &stderr})
	defer closeFn()
	logger.Debug("parsed", "statements", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(stderr.Bytes()), &rec))
	assert.Equal(t, "parsed", rec["msg"])
	assert.Equal(t, float64(3), rec["statements"])
}

func TestFileDestinationCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "nested", "minijs.log")
	var stderr bytes.Buffer
	logger, closeFn := logging.New(logging.Options{Level: "info", File: path, Stderr: &stderr})
	logger.Info("to file")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
	assert.Empty(t, stderr.String())
}

func TestUnopenableFileFallsBackToStderr(t *testing.T) {
	dir := t.TempDir()
	var stderr bytes.Buffer
	// a directory cannot be opened for writing
	logger, closeFn := logging.New(logging.Options{Level: "info", File: dir, Stderr: &stderr})
	defer closeFn()
	logger.Info("fallback")
	out := stderr.String()
	assert.True(t, strings.HasPrefix(out, "failed to open log file"))
	assert.Contains(t, out, "msg=fallback")
}
