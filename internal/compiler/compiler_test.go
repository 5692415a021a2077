package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finchley/marionette/internal/choreo"
)

// TestLoadFile_CUE tests loading a CUE program through the embedded schema.
func TestLoadFile_CUE(t *testing.T) {
	p, err := LoadFile(filepath.Join("testdata", "valid_program.cue"))
	require.NoError(t, err)

	assert.Equal(t, "agent-arrival", p.ID)
	assert.Equal(t, "agent.created", p.On)
	assert.Equal(t, "role == 'worker'", p.When)
	assert.True(t, p.Interrupts)

	require.Len(t, p.Steps, 3)
	assert.Equal(t, choreo.ActionSpawn, p.Steps[0].Action)
	assert.Equal(t, map[string]any{"label": "signal.name"}, p.Steps[0].Params)
	assert.Equal(t, int64(1000), p.Steps[1].Duration)
	assert.Equal(t, "arc", p.Steps[1].Easing)
	assert.Equal(t, "workbench", p.Steps[1].Target)
}

// TestLoadFile_JSON tests loading a versioned JSON program document.
func TestLoadFile_JSON(t *testing.T) {
	p, err := LoadFile(filepath.Join("testdata", "valid_program.json"))
	require.NoError(t, err)

	assert.Equal(t, "pulse-on-error", p.ID)
	assert.Equal(t, "task.failed", p.On)
	assert.False(t, p.Interrupts)
	require.Len(t, p.Steps, 1)
	assert.Equal(t, choreo.ActionPulse, p.Steps[0].Action)
	assert.Equal(t, "easeInOut", p.Steps[0].Easing)
}

// TestLoadFile_Errors tests per-file rejection paths.
func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantMsg string
	}{
		{"action outside vocabulary", "bad_action.cue", ""},
		{"unsupported version", "bad_version.json", "unsupported program version 2"},
		{"unknown field", "unknown_field.json", "triggers"},
		{"missing file", "nope.json", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(filepath.Join("testdata", tt.file))
			require.Error(t, err)
			var le *LoadError
			require.ErrorAs(t, err, &le)
			if tt.wantMsg != "" {
				assert.Contains(t, le.Message, tt.wantMsg)
			}
		})
	}
}

// TestLoadFile_UnsupportedExtension tests extension gating.
func TestLoadFile_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "program.yaml")
	writeFile(t, path, "id: x")

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported extension")
}

// TestLoadDir tests recursive loading in sorted path order.
func TestLoadDir(t *testing.T) {
	programs, err := LoadDir(filepath.Join("testdata", "programs"))
	require.NoError(t, err)

	require.Len(t, programs, 2)
	assert.Equal(t, "arrival", programs[0].ID)
	assert.Equal(t, "departure", programs[1].ID)
}

// TestLoadDir_Empty tests that a directory without programs is an error.
func TestLoadDir_Empty(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .cue or .json program files")
}

// TestCompileJSON_DefaultVersion tests that a missing version defaults to
// the current one.
func TestCompileJSON_DefaultVersion(t *testing.T) {
	p, err := CompileJSON([]byte(`{"id":"x","on":"go","steps":[{"id":"s1","action":"spawn","entity":"e"}]}`), "inline.json")
	require.NoError(t, err)
	assert.Equal(t, "x", p.ID)
}

// TestCompileCUE_MissingProgram tests that a CUE file without a program
// value is rejected.
func TestCompileCUE_MissingProgram(t *testing.T) {
	_, err := CompileCUE([]byte(`other: 42`), "inline.cue")
	require.Error(t, err)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
