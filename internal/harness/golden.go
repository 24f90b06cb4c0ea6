package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/replica/internal/variant"
)

// GoldenDir is where golden files live, relative to the test's package.
const GoldenDir = "testdata/golden"

// GoldenDocument renders the content of a golden file: the client scene after
// the last pass plus the per-pass counters.
func GoldenDocument(name string, result *Result) ([]byte, error) {
	stats := make([]any, len(result.Stats))
	for i, s := range result.Stats {
		stats[i] = map[string]any{
			"entities_created":    s.EntitiesCreated,
			"entities_updated":    s.EntitiesUpdated,
			"entities_removed":    s.EntitiesRemoved,
			"components_created":  s.ComponentsCreated,
			"components_updated":  s.ComponentsUpdated,
			"components_replaced": s.ComponentsReplaced,
			"components_skipped":  s.ComponentsSkipped,
			"variables_set":       s.VariablesSet,
			"variables_pruned":    s.VariablesPruned,
			"desynchronized":      s.Desynchronized,
		}
	}
	return variant.MarshalCanonical(map[string]any{
		"scenario":      name,
		"snapshot_size": result.SnapshotSize,
		"stats":         stats,
		"scene":         result.Scene,
	})
}

// RunWithGolden executes a scenario and compares its result against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...RunOption) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against the named golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	doc, err := GoldenDocument(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, doc)
	return nil
}
