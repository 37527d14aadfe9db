package cabin

import "sync"

// Cabin is a State shared between the dispatch loop and scheduled
// sequences.
//
// Every access holds the lock for the duration of the callback only. Never
// block or sleep inside a callback.
type Cabin struct {
	mu    sync.Mutex
	state *State
}

// New creates a Cabin around a fresh State.
func New(limits Limits) *Cabin {
	return &Cabin{state: NewState(limits)}
}

// Update runs fn with exclusive access to the state. All field writes made
// by fn are applied as one step.
func (c *Cabin) Update(fn func(*State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.state)
}

// With runs fn with exclusive access to the state and returns its result.
func With[T any](c *Cabin, fn func(*State) T) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.state)
}

// Snapshot returns the full-state payload.
func (c *Cabin) Snapshot() map[string]any {
	return With(c, (*State).Snapshot)
}

// Attached reports whether the jetway is attached.
func (c *Cabin) Attached() bool {
	return With(c, func(s *State) bool { return s.JetwayAttached })
}

// Copy returns a copy of the current state.
func (c *Cabin) Copy() State {
	return With(c, func(s *State) State { return *s })
}
