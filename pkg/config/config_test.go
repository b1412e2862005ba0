package config_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/minijs/pkg/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefaults(t *testing.T) {
	cfg := config.Defaults()
	assert.Equal(t, "none", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, config.ForLoopOnce, cfg.ForLoop)
	assert.False(t, cfg.IterateFor())
	assert.True(t, cfg.Output.Buffered)
	assert.Nil(t, cfg.Budget.TimeMs)
	assert.Nil(t, cfg.Budget.MaxIterations)
	assert.NoError(t, cfg.Validate())
}

func TestDecodeOverlaysDefaults(t *testing.T) {
	cfg, err := config.Decode(strings.NewReader(`
log:
  level: debug
budget:
  max_iterations: 500
for_loop: iterate
`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "unset field keeps default")
	require.NotNil(t, cfg.Budget.MaxIterations)
	assert.Equal(t, int64(500), *cfg.Budget.MaxIterations)
	assert.Nil(t, cfg.Budget.TimeMs)
	assert.True(t, cfg.IterateFor())
}

func TestDecodeEmptyDocument(t *testing.T) {
	cfg, err := config.Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, config.Defaults(), cfg)
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := config.Decode(strings.NewReader("colour: blue\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")
}

func TestValidateIssues(t *testing.T) {
	_, err := config.Decode(strings.NewReader(`
log:
  level: loud
  format: xml
for_loop: sometimes
budget:
  time_ms: 0
  max_iterations: -1
`))
	var ve *config.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Issues, 5)
}

func TestLoadPrefersProjectFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeFile(t, filepath.Join(home, ".minijs", "config.yaml"), "for_loop: iterate\n")

	project := t.TempDir()
	projectPath := filepath.Join(project, ".minijs.yaml")
	writeFile(t, projectPath, "log:\n  level: info\n")

	cfg, err := config.Load(project)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.IterateFor(), "user file is not merged when a project file exists")
	assert.Equal(t, projectPath, cfg.Source)
}

func TestLoadFallsBackToUserFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeFile(t, filepath.Join(home, ".minijs", "config.yaml"), "for_loop: iterate\n")

	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.True(t, cfg.IterateFor())
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, config.Defaults(), cfg)
}

func TestLoadReportsMalformedFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	writeFile(t, filepath.Join(project, ".minijs.yaml"), "log: [unclosed\n")

	_, err := config.Load(project)
	var ce *config.Error
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, ce.Path, ".minijs.yaml")
}

func TestLoadFileMissing(t *testing.T) {
	_, err := config.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
