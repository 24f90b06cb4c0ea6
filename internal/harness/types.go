package harness

import "github.com/roach88/replica/internal/snapshot"

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause matched.
	Pass bool `json:"pass"`

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Stats holds the counters of each decode pass that ran.
	Stats []snapshot.ReadStats `json:"stats"`

	// Scene is the client scene after the last pass, as plain data.
	Scene map[string]any `json:"scene"`

	// Dump is the canonical JSON of Scene.
	Dump []byte `json:"-"`

	// SnapshotSize is the length of the decoded buffer in bytes.
	SnapshotSize int `json:"snapshot_size"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
		Stats:  []snapshot.ReadStats{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
