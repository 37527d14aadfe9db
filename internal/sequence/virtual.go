package sequence

import (
	"context"
	"time"

	"github.com/jackwaller57/simpa/internal/clock"
	"github.com/jackwaller57/simpa/internal/sink"
)

// SettableClock is a clock whose time is moved explicitly.
type SettableClock interface {
	clock.Clock
	Set(t time.Time)
}

type task struct {
	ctx  context.Context
	plan Plan
	emit func(sink.Event)
	wake time.Time
	done bool
}

// Virtual runs plans deterministically on the caller's goroutine.
//
// Start runs a plan until its first sleep. Advance then moves the clock
// forward, waking plans in deadline order (ties in start order) and running
// each until its next sleep. The result is a reproducible interleaving of
// scheduled events.
//
// Thread-safety: Virtual is not safe for concurrent use.
type Virtual struct {
	clk   SettableClock
	tasks []*task
}

// NewVirtual creates a virtual scheduler driving clk.
func NewVirtual(clk SettableClock) *Virtual {
	return &Virtual{clk: clk}
}

// Now returns the virtual time.
func (v *Virtual) Now() time.Time { return v.clk.Now() }

// Start implements Scheduler.
func (v *Virtual) Start(ctx context.Context, p Plan, emit func(sink.Event)) {
	t := &task{ctx: ctx, plan: p, emit: emit, wake: v.clk.Now()}
	v.tasks = append(v.tasks, t)
	v.run(t)
	v.prune()
}

// Advance moves the clock forward by d, running every plan step that falls
// due on the way.
func (v *Virtual) Advance(d time.Duration) {
	target := v.clk.Now().Add(d)
	for {
		t := v.earliest(target)
		if t == nil {
			break
		}
		if t.wake.After(v.clk.Now()) {
			v.clk.Set(t.wake)
		}
		v.run(t)
	}
	v.clk.Set(target)
	v.prune()
}

// Pending returns the number of plans that have not finished.
func (v *Virtual) Pending() int {
	n := 0
	for _, t := range v.tasks {
		if !t.done && t.ctx.Err() == nil {
			n++
		}
	}
	return n
}

// run executes t until it sleeps, finishes, or is cancelled.
func (v *Virtual) run(t *task) {
	for {
		if t.ctx.Err() != nil {
			t.done = true
			return
		}
		step, ok := t.plan.Next()
		if !ok {
			t.done = true
			return
		}
		switch step.Kind {
		case StepSleep:
			t.wake = v.clk.Now().Add(step.Delay)
			return
		case StepEmit:
			t.emit(step.Event)
		}
	}
}

func (v *Virtual) earliest(limit time.Time) *task {
	var best *task
	for _, t := range v.tasks {
		if t.done || t.wake.After(limit) {
			continue
		}
		if best == nil || t.wake.Before(best.wake) {
			best = t
		}
	}
	return best
}

func (v *Virtual) prune() {
	kept := v.tasks[:0]
	for _, t := range v.tasks {
		if !t.done {
			kept = append(kept, t)
		}
	}
	v.tasks = kept
}
