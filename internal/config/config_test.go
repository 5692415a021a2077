package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "marionette.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestLoad tests a full config document.
func TestLoad(t *testing.T) {
	path := writeConfig(t, `version: 1
programs_dir: programs
trace_db: trace.db
engine:
  tick_ms: 33
  max_performances: 64
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "programs", cfg.ProgramsDir)
	assert.Equal(t, "trace.db", cfg.TraceDB)
	assert.Equal(t, 33*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, 64, cfg.MaxPerformances())
}

// TestLoad_BadVersion tests version gating.
func TestLoad_BadVersion(t *testing.T) {
	path := writeConfig(t, "version: 2\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config version")
}

// TestLoad_MissingFile tests file errors pass through.
func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// TestDefaults tests zero-value fallbacks.
func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 16*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, 0, cfg.MaxPerformances())
	assert.Empty(t, cfg.ProgramsDir)
}
