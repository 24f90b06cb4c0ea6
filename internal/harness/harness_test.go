package harness

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return s
}

func TestScenarios(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(strings.TrimSuffix(filepath.Base(path), ".yaml"), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors:\n%s", strings.Join(result.Errors, "\n"))
		})
	}
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	scenario := mustParse(t, `
name: wrong_expectations
description: "every clause disagrees with the outcome"
remote:
  - id: 1
    name: hero
    vars:
      score: 5
local:
  - id: 5
    name: ghost
register: [5]
expect:
  present: [5]
  absent: [1]
  vars:
    - node: 1
      values:
        score: 6
  stats:
    - entities_created: 2
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "Assertion failed: present")
	assert.Contains(t, result.Errors[1], "Assertion failed: absent")
	assert.Contains(t, result.Errors[2], "Assertion failed: vars")
	assert.Contains(t, result.Errors[3], "Assertion failed: stats")
}

func TestRun_UnexpectedDecodeError(t *testing.T) {
	scenario := mustParse(t, `
name: cut_short
description: "truncation without an expected error"
remote:
  - id: 1
truncate: 2
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "pass 1: unexpected decode error")
	assert.Len(t, result.Stats, 1)
	assert.Equal(t, 2, result.SnapshotSize)
}

func TestRun_ExpectedErrorMissing(t *testing.T) {
	scenario := mustParse(t, `
name: no_error
description: "a whole snapshot decodes fine"
remote:
  - id: 1
passes: 2
expect:
  error: malformed
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"expected malformed decode error, all 2 passes succeeded"}, result.Errors)
}

func TestRun_SetupErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "register unknown node",
			yaml:    "name: n\ndescription: d\nregister: [4]\n",
			wantErr: "register: no local node 4",
		},
		{
			name:    "bad schema",
			yaml:    "name: n\ndescription: d\nschema: \"component: X: attributes: [{name: \\\"A\\\", type: \\\"Nope\\\"}]\"\n",
			wantErr: "schema:",
		},
		{
			name:    "unknown component class",
			yaml:    "name: n\ndescription: d\nremote:\n  - id: 1\n    components:\n      - type: Missing\n",
			wantErr: "build remote: node 1: component Missing",
		},
		{
			name:    "unknown attribute",
			yaml:    "name: n\ndescription: d\nremote:\n  - id: 1\n    components:\n      - type: SmoothedTransform\n        attributes: {Speed: 1}\n",
			wantErr: `has no attribute "Speed"`,
		},
		{
			name:    "bad position",
			yaml:    "name: n\ndescription: d\nlocal:\n  - id: 1\n    position: [1, 2]\n",
			wantErr: "build local: node 1: position",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(mustParse(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/prune_variables.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, string(first.Dump), string(second.Dump))
	assert.Equal(t, first.Stats, second.Stats)
}

func TestRun_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	scenario, err := LoadScenario("testdata/scenarios/unknown_component_unframed.yaml")
	require.NoError(t, err)

	result, err := Run(scenario, WithLogger(logger))
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Contains(t, buf.String(), "snapshot desynchronized")
}

func TestRun_SnappedRejectsExtraSnaps(t *testing.T) {
	scenario := mustParse(t, `
name: snapped_mismatch
description: "a new smoothed node snaps but is not listed"
remote:
  - id: 1
    components:
      - type: SmoothedTransform
        id: 10
expect:
  snapped: []
`)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "node 1 snapped 0 time(s)")
}
