// Package sequence runs time-extended side effects such as volume fades and
// delayed announcements.
//
// A sequence is a Plan: a step machine that yields one Sleep or Emit step at
// a time. Schedulers check the plan's context before every step, so a
// cancelled sequence stops at its next step rather than at its next cycle.
package sequence

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/jackwaller57/simpa/internal/sink"
)

// StepKind selects what a Step does.
type StepKind uint8

const (
	StepSleep StepKind = iota + 1
	StepEmit
)

// Step is one unit of a plan.
type Step struct {
	Kind  StepKind
	Delay time.Duration
	Event sink.Event
}

// Sleep returns a step that waits for d.
func Sleep(d time.Duration) Step { return Step{Kind: StepSleep, Delay: d} }

// Emit returns a step that emits ev.
func Emit(ev sink.Event) Step { return Step{Kind: StepEmit, Event: ev} }

// Plan produces the steps of one sequence.
// Next returns false once the plan is finished.
type Plan interface {
	Name() string
	Next() (Step, bool)
}

// Scheduler launches plans concurrently with the caller.
type Scheduler interface {
	Start(ctx context.Context, p Plan, emit func(sink.Event))
}

// Timing holds the delays used by the boarding and doors plans.
type Timing struct {
	FirstWelcomeDelay  time.Duration
	FadeStep           int
	FadeInterval       time.Duration
	FadePause          time.Duration
	AnnouncementLength time.Duration
	CycleMin           time.Duration
	CycleMax           time.Duration
	DoorsDelay         time.Duration
}

// DefaultTiming returns the production timing.
func DefaultTiming() Timing {
	return Timing{
		FirstWelcomeDelay:  30 * time.Second,
		FadeStep:           5,
		FadeInterval:       40 * time.Millisecond,
		FadePause:          100 * time.Millisecond,
		AnnouncementLength: 5 * time.Second,
		CycleMin:           30 * time.Second,
		CycleMax:           120 * time.Second,
		DoorsDelay:         15 * time.Second,
	}
}

// Jitter picks the delay before the next welcome announcement cycle.
type Jitter func(min, max time.Duration) time.Duration

// UniformJitter draws whole seconds uniformly from [min, max].
func UniformJitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	span := int64((max - min) / time.Second)
	return min + time.Duration(rand.Int64N(span+1))*time.Second
}

// FixedJitter always returns d.
func FixedJitter(d time.Duration) Jitter {
	return func(time.Duration, time.Duration) time.Duration { return d }
}
