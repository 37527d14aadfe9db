package engine

import (
	"sync/atomic"
	"time"
)

// errorCounter tracks consecutive read errors and host exceptions.
//
// The count is informational: no threshold aborts the session. Logging is
// rate limited so a stalled host cannot flood the log.
type errorCounter struct {
	interval    time.Duration
	lastLog     time.Time
	consecutive atomic.Int64
	total       atomic.Int64
}

func newErrorCounter(interval time.Duration) *errorCounter {
	return &errorCounter{interval: interval}
}

// Record counts one error. It returns the consecutive count and whether the
// error should be logged now.
func (c *errorCounter) Record(now time.Time) (int64, bool) {
	n := c.consecutive.Add(1)
	c.total.Add(1)
	if now.Sub(c.lastLog) < c.interval {
		return n, false
	}
	c.lastLog = now
	return n, true
}

// Reset clears the consecutive count.
func (c *errorCounter) Reset() {
	c.consecutive.Store(0)
}

// Consecutive returns the current consecutive count.
func (c *errorCounter) Consecutive() int64 { return c.consecutive.Load() }

// Total returns the number of errors seen in the session.
func (c *errorCounter) Total() int64 { return c.total.Load() }
