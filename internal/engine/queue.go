package engine

import (
	"sync"

	"github.com/jackwaller57/simpa/internal/telemetry"
)

// input is one unit of work for the dispatch loop: either a telemetry
// message or a read error reported by the poller.
type input struct {
	msg telemetry.Message
	err error
}

// inbox is a thread-safe FIFO feeding the dispatch loop.
//
// The poller goroutine and control requests (manual jetway toggles) enqueue;
// only Run dequeues. The signal channel lets Run wait on the inbox and its
// context at the same time.
type inbox struct {
	mu     sync.Mutex
	items  []input
	closed bool
	signal chan struct{} // buffered, size 1
}

func newInbox() *inbox {
	return &inbox{
		items:  make([]input, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an item. Returns false once the inbox is closed.
func (q *inbox) Enqueue(in input) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, in)

	// Non-blocking: the size-1 buffer coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front item without blocking.
func (q *inbox) TryDequeue() (input, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return input{}, false
	}
	in := q.items[0]
	q.items[0] = input{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return in, true
}

// Wait returns a channel that signals when items may be available.
// It is closed by Close.
func (q *inbox) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued items.
func (q *inbox) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting items and wakes the waiter.
func (q *inbox) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
