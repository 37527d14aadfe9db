package testutil

// FixedSessionIDs returns the same session ID every time.
//
// This enables deterministic test execution and golden trace comparison:
// the same scenario with the same FixedSessionIDs produces identical logs.
//
// Thread-safety: FixedSessionIDs is stateless and safe for concurrent use.
type FixedSessionIDs struct {
	id string
}

// NewFixedSessionIDs creates a generator that always returns id.
// If id is empty, Generate() returns "test-session-default".
func NewFixedSessionIDs(id string) *FixedSessionIDs {
	if id == "" {
		id = "test-session-default"
	}
	return &FixedSessionIDs{id: id}
}

// Generate returns the fixed session ID.
func (g *FixedSessionIDs) Generate() string {
	return g.id
}
