package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommand_HarnessScenarios(t *testing.T) {
	stdout, err := execute(t, "--format", "json", "test", scenariosDir)
	require.NoError(t, err)

	resp, data := decodeResponse(t, stdout)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, float64(0), data["failed"])
	assert.Equal(t, data["total"], data["passed"])

	golden := map[string]string{}
	for _, s := range data["scenarios"].([]any) {
		sr := s.(map[string]any)
		golden[sr["name"].(string)], _ = sr["golden"].(string)
	}
	assert.Equal(t, "match", golden["create_with_component"])
	assert.Equal(t, "match", golden["prune_absent_root"])
	assert.Equal(t, "none", golden["sticky_variables"])
}

func TestTestCommand_Filter(t *testing.T) {
	stdout, err := execute(t, "test", scenariosDir, "--filter", "prune_*")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ prune_absent_root")
	assert.Contains(t, stdout, "✓ prune_variables")
	assert.NotContains(t, stdout, "sticky_variables")
	assert.Contains(t, stdout, "Test Summary: 3 passed, 0 failed, 3 total")
}

func TestTestCommand_UpdateThenMismatch(t *testing.T) {
	golden := t.TempDir()

	_, err := execute(t, "test", scenariosDir, "--filter", "prune_absent_root", "--golden-dir", golden, "--update")
	require.NoError(t, err)

	path := filepath.Join(golden, "prune_absent_root.golden")
	want, err := os.ReadFile("../harness/testdata/golden/prune_absent_root.golden")
	require.NoError(t, err)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
	stdout, err := execute(t, "test", scenariosDir, "--filter", "prune_absent_root", "--golden-dir", golden)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ prune_absent_root")
	assert.Contains(t, stdout, "scene does not match golden file")
}

func TestTestCommand_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(scenarios, "wrong.yaml"), []byte(`name: wrong
description: Expects an entity the snapshot never creates
remote:
  - id: 1
expect:
  present: [2]
`), 0644))

	stdout, err := execute(t, "--format", "json", "test", scenarios)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, data := decodeResponse(t, stdout)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, float64(1), data["failed"])
}

func TestTestCommand_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := execute(t, "test", filepath.Join(t.TempDir(), "absent"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("invalid filter", func(t *testing.T) {
		_, err := execute(t, "test", scenariosDir, "--filter", "[")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("empty directory", func(t *testing.T) {
		stdout, err := execute(t, "test", t.TempDir())
		require.NoError(t, err)
		assert.Contains(t, stdout, "No scenarios found.")
	})
}
