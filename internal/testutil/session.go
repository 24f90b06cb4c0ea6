package testutil

// FixedSessionGenerator returns the same session id on every call.
//
// Recording a scenario twice with the same generator writes to the same
// session, which the store treats idempotently per tick.
//
// Thread-safety: FixedSessionGenerator is stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a generator for id. An empty id becomes
// "test-session-default".
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = "test-session-default"
	}
	return &FixedSessionGenerator{id: id}
}

// Generate implements snapshot.SessionIDGenerator.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
