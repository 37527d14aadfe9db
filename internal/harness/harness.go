package harness

import (
	"fmt"
	"time"

	"github.com/jackwaller57/simpa/internal/bridge"
	"github.com/jackwaller57/simpa/internal/engine"
	"github.com/jackwaller57/simpa/internal/sequence"
	"github.com/jackwaller57/simpa/internal/sink"
	"github.com/jackwaller57/simpa/internal/testutil"
)

// Harness executes scenarios against a fresh engine on a manual clock.
type Harness struct {
	eng   *engine.Engine
	clock *testutil.ManualClock
	sched *sequence.Virtual
	start time.Time
	trace []TraceEvent
}

// Option configures a run.
type Option func(*engine.Config)

// WithEngineConfig replaces the engine configuration. The jitter is still
// fixed to the scenario's cycle delay.
func WithEngineConfig(cfg engine.Config) Option {
	return func(c *engine.Config) { *c = cfg }
}

// Run executes a scenario and evaluates its assertions.
//
// A quit ends the session: later record and message steps are not applied,
// but advance steps still run so sequences already scheduled can finish.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	actions, err := scenario.compile()
	if err != nil {
		return nil, err
	}
	cycle, err := scenario.CycleDelayDuration()
	if err != nil {
		return nil, err
	}

	cfg := engine.DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Jitter = sequence.FixedJitter(cycle)

	h := &Harness{
		clock: testutil.NewManualClock(testutil.Epoch),
		start: testutil.Epoch,
	}
	h.sched = sequence.NewVirtual(h.clock)
	h.eng = engine.New(sink.Func(h.record),
		engine.WithConfig(cfg),
		engine.WithClock(h.clock),
		engine.WithScheduler(h.sched),
	)

	result := NewResult()
	for _, a := range actions {
		if a.msg == nil {
			h.sched.Advance(a.advance)
			continue
		}
		if result.Ended {
			continue
		}
		result.Ended = h.eng.Step(a.msg)
	}

	result.Trace = h.trace
	result.State = h.eng.Snapshot()
	result.Elapsed = h.clock.Now().Sub(h.start)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) record(ev sink.Event) {
	h.trace = append(h.trace, TraceEvent{
		Seq:     ev.Seq,
		At:      h.clock.Now().Sub(h.start),
		Event:   ev.Name,
		Payload: ev.Payload,
	})
}

// Cues converts the script into a bridge feed. Advance steps become the
// delay before the next message.
func (s *Scenario) Cues() ([]bridge.Cue, error) {
	actions, err := s.compile()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	var cues []bridge.Cue
	var wait time.Duration
	for _, a := range actions {
		if a.msg == nil {
			wait += a.advance
			continue
		}
		cues = append(cues, bridge.Cue{After: wait, Msg: a.msg})
		wait = 0
	}
	return cues, nil
}
