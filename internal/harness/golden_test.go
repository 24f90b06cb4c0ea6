package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"create_with_component", "prune_absent_root"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestGoldenDocument_Canonical(t *testing.T) {
	result := NewResult()
	result.Scene = map[string]any{"nodes": []any{}}
	result.SnapshotSize = 1

	doc, err := GoldenDocument("empty", result)
	require.NoError(t, err)
	assert.Equal(t, `{"scenario":"empty","scene":{"nodes":[]},"snapshot_size":1,"stats":[]}`, string(doc))
}
