package engine

import (
	"sync/atomic"

	"github.com/jackwaller57/simpa/internal/sink"
)

// Clock is the logical clock that stamps every emitted event.
//
// The dispatch loop and scheduled sequences share one Clock, so sequence
// numbers are unique and increasing across a session even though events
// from different sequences interleave.
//
// Thread-safety: Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Stamp assigns the next sequence number to ev.
func (c *Clock) Stamp(ev sink.Event) sink.Event {
	ev.Seq = c.Next()
	return ev
}
