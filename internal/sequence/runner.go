package sequence

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jackwaller57/simpa/internal/clock"
	"github.com/jackwaller57/simpa/internal/sink"
)

// Runner executes each plan on its own goroutine against a wall clock.
//
// Thread-safety: Start and Wait are safe for concurrent use.
type Runner struct {
	clk clock.Clock
	wg  sync.WaitGroup
}

// NewRunner creates a runner using clk for sleeps.
func NewRunner(clk clock.Clock) *Runner {
	return &Runner{clk: clk}
}

// Start launches p. It returns immediately.
func (r *Runner) Start(ctx context.Context, p Plan, emit func(sink.Event)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := Execute(ctx, r.clk, p, emit); err != nil {
			slog.Debug("sequence cancelled", "plan", p.Name(), "error", err)
		}
	}()
}

// Wait blocks until every started plan has finished or been cancelled.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Execute runs p to completion on the calling goroutine.
// The context is checked before every step; a cancelled context stops the
// plan and returns ctx.Err().
func Execute(ctx context.Context, clk clock.Clock, p Plan, emit func(sink.Event)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		step, ok := p.Next()
		if !ok {
			return nil
		}
		switch step.Kind {
		case StepSleep:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-clk.After(step.Delay):
			}
		case StepEmit:
			emit(step.Event)
		}
	}
}
