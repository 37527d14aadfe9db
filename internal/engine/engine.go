package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackwaller57/simpa/internal/cabin"
	"github.com/jackwaller57/simpa/internal/clock"
	"github.com/jackwaller57/simpa/internal/sequence"
	"github.com/jackwaller57/simpa/internal/sink"
	"github.com/jackwaller57/simpa/internal/telemetry"
)

// Config holds the engine's behavioral tuning.
type Config struct {
	Limits           cabin.Limits
	Timing           sequence.Timing
	Jitter           sequence.Jitter
	PollYield        time.Duration
	ErrorLogInterval time.Duration
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		Limits:           cabin.DefaultLimits(),
		Timing:           sequence.DefaultTiming(),
		Jitter:           sequence.UniformJitter,
		PollYield:        2 * time.Millisecond,
		ErrorLogInterval: time.Second,
	}
}

// Stats are counters describing one session.
type Stats struct {
	Records           int64 // data records processed
	Ignored           int64 // unknown tags and malformed payloads
	Emitted           int64 // events emitted, including scheduled ones
	ConsecutiveErrors int64
	TotalErrors       int64
}

// Engine is the single dispatch loop that turns telemetry into UI events.
//
// Classification and primary transitions happen on the Run goroutine (or the
// caller of Step). Scheduled sequences run through the Scheduler and share
// the cabin state under its lock.
//
// Thread-safety model:
//   - Run / Step: one goroutine only
//   - RequestToggle, Snapshot, Stats: safe from any goroutine
type Engine struct {
	cfg   Config
	clk   clock.Clock
	out   sink.Sink
	sched sequence.Scheduler
	cabin *cabin.Cabin
	seq   *Clock
	queue *inbox
	errs  *errorCounter

	onQuit func()

	// emitMu keeps stamping and delivery in one order.
	emitMu sync.Mutex

	// parent is the context scheduled sequences derive from.
	parent         context.Context
	cancelBoarding context.CancelFunc

	records atomic.Int64
	ignored atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithClock sets the wall clock used for debounce windows and sequences.
func WithClock(clk clock.Clock) Option {
	return func(e *Engine) { e.clk = clk }
}

// WithScheduler sets the scheduler for time-extended sequences.
// Defaults to a sequence.Runner on the engine clock.
func WithScheduler(s sequence.Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

// WithQuitHandler replaces the default quit behavior, which emits
// simconnect-quit. The lifecycle controller uses it to emit exactly one quit
// per session.
func WithQuitHandler(fn func()) Option {
	return func(e *Engine) { e.onQuit = fn }
}

// New creates an engine emitting to out. The cabin state is fresh.
func New(out sink.Sink, opts ...Option) *Engine {
	e := &Engine{
		cfg:    DefaultConfig(),
		clk:    clock.System{},
		out:    out,
		seq:    NewClock(),
		queue:  newInbox(),
		parent: context.Background(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sched == nil {
		e.sched = sequence.NewRunner(e.clk)
	}
	if e.cfg.Jitter == nil {
		e.cfg.Jitter = sequence.UniformJitter
	}
	if e.onQuit == nil {
		e.onQuit = func() { e.Emit(sink.New(sink.EventQuit, nil)) }
	}
	e.cabin = cabin.New(e.cfg.Limits)
	e.errs = newErrorCounter(e.cfg.ErrorLogInterval)
	return e
}

// Emit stamps ev with the next sequence number and forwards it to the sink.
// Safe for concurrent use; scheduled sequences emit through it. The sink
// receives events in sequence order and must not call back into Emit.
func (e *Engine) Emit(ev sink.Event) {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()
	e.out.Emit(e.seq.Stamp(ev))
}

// Cabin returns the shared state.
func (e *Engine) Cabin() *cabin.Cabin { return e.cabin }

// Snapshot returns the current full-state payload.
func (e *Engine) Snapshot() map[string]any { return e.cabin.Snapshot() }

// Stats returns the session counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Records:           e.records.Load(),
		Ignored:           e.ignored.Load(),
		Emitted:           e.seq.Current(),
		ConsecutiveErrors: e.errs.Consecutive(),
		TotalErrors:       e.errs.Total(),
	}
}

// RequestToggle asks the running loop to toggle the jetway, as if the host
// had sent the toggle event. Returns false if the loop has stopped.
func (e *Engine) RequestToggle() bool {
	return e.queue.Enqueue(input{msg: telemetry.DiscreteEvent{ID: telemetry.EventToggleJetway}})
}

// Run polls src and dispatches until the host quits or ctx is cancelled.
//
// A poller goroutine reads src and yields PollYield after each poll. Read
// errors are counted and logged, never fatal. Returns nil when the host
// closes the connection and ctx.Err() on cancellation. Ending the loop
// cancels the boarding sequence, whose state dies with the session; a pending
// doors announcement still runs to completion.
func (e *Engine) Run(ctx context.Context, src telemetry.Source) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.parent = ctx

	slog.Info("engine starting")
	go e.poll(ctx, src)

	for {
		in, ok := e.queue.TryDequeue()
		if ok {
			if in.err != nil {
				e.recordError(in.err)
				continue
			}
			if e.Step(in.msg) {
				slog.Info("engine stopping: host closed the connection")
				e.queue.Close()
				return nil
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()
		case <-e.queue.Wait():
		}
	}
}

// poll reads src until ctx ends or the source closes.
// The yield uses real time; it only keeps the poller from spinning.
func (e *Engine) poll(ctx context.Context, src telemetry.Source) {
	yield := time.NewTimer(e.cfg.PollYield)
	defer yield.Stop()

	for ctx.Err() == nil {
		msg, err := src.Next(ctx)
		switch {
		case err == nil:
			e.queue.Enqueue(input{msg: msg})
		case errors.Is(err, telemetry.ErrNoData):
		case errors.Is(err, telemetry.ErrClosed):
			e.queue.Enqueue(input{msg: telemetry.Closed{}})
			return
		case ctx.Err() != nil:
			return
		default:
			e.queue.Enqueue(input{err: err})
		}

		yield.Reset(e.cfg.PollYield)
		select {
		case <-ctx.Done():
			return
		case <-yield.C:
		}
	}
}

// Step performs one synchronous transition for msg. It returns true when
// msg ends the session.
func (e *Engine) Step(msg telemetry.Message) bool {
	switch m := msg.(type) {
	case telemetry.DataRecord:
		e.errs.Reset()
		e.handleRecord(m)
	case telemetry.DiscreteEvent:
		if m.ID == telemetry.EventToggleJetway {
			e.toggleJetway()
		} else {
			slog.Debug("ignoring discrete event", "id", m.ID)
		}
	case telemetry.Opened:
		slog.Info("telemetry connection opened")
		e.errs.Reset()
		e.Emit(sink.New(sink.EventOpen, nil))
	case telemetry.Closed:
		slog.Info("telemetry connection closed")
		e.onQuit()
		return true
	case telemetry.Exception:
		e.recordError(fmt.Errorf("host exception %d", m.Code))
	default:
		slog.Debug("ignoring message", "type", fmt.Sprintf("%T", msg))
	}
	return false
}

func (e *Engine) recordError(err error) {
	n, log := e.errs.Record(e.clk.Now())
	if log {
		slog.Warn("telemetry error", "errors", n, "error", err)
	}
}

func (e *Engine) handleRecord(rec telemetry.DataRecord) {
	r, ok, err := telemetry.Classify(rec)
	if err != nil {
		e.ignored.Add(1)
		slog.Debug("ignoring malformed record", "tag", rec.Tag, "error", err)
		return
	}
	if !ok {
		e.ignored.Add(1)
		slog.Debug("ignoring unknown tag", "tag", uint32(rec.Tag))
		return
	}
	e.records.Add(1)

	switch r := r.(type) {
	case telemetry.Altitude:
		e.observeAltitude(r.Feet)
	case telemetry.Switch:
		e.observeSwitch(r)
	case telemetry.ExitOpen:
		e.observeExitOpen(r.Percent)
	case telemetry.CameraState:
		e.observeCamera(r.Code)
	case telemetry.CameraSubstate:
		now := e.clk.Now()
		if cabin.With(e.cabin, func(s *cabin.State) bool { return s.ObserveSubstate(now) }) {
			slog.Debug("camera substate", "code", r.Code)
		}
	case telemetry.CameraAxis:
		e.observeAxis(r)
	case telemetry.FrameTick:
	case telemetry.BypassPin:
		e.observeBypassPin(r)
	}
}

func (e *Engine) observeAltitude(alt float64) {
	var res cabin.AltitudeResult
	var snap map[string]any
	e.cabin.Update(func(s *cabin.State) {
		res = s.ObserveAltitude(alt)
		snap = s.Snapshot()
	})

	if res.TenK {
		slog.Info("passing 10,000 ft", "alt", alt)
		e.Emit(sink.Audio(sink.AudioTenK))
	}
	if res.ArriveSoon {
		slog.Debug("arrive soon threshold crossed", "alt", alt)
	}
	if res.LandingSoon {
		slog.Debug("landing soon threshold crossed", "alt", alt)
	}
	e.Emit(sink.New(sink.EventData, snap))
}

var switchEvents = map[telemetry.SwitchKind]string{
	telemetry.SwitchBeacon:        sink.EventBeacon,
	telemetry.SwitchSeatbelt:      sink.EventSeatbelt,
	telemetry.SwitchLandingLights: sink.EventLandingLights,
}

func (e *Engine) observeSwitch(r telemetry.Switch) {
	changed := cabin.With(e.cabin, func(s *cabin.State) bool { return s.ObserveSwitch(r.Kind, r.Value) })
	if !changed {
		return
	}
	e.Emit(sink.Switch(switchEvents[r.Kind], r.On()))
}

func (e *Engine) observeExitOpen(percent float64) {
	now := e.clk.Now()
	var res cabin.JetwayResult
	var snap map[string]any
	e.cabin.Update(func(s *cabin.State) {
		res = s.ObserveExitOpen(now, percent)
		snap = s.Snapshot()
	})
	if !res.Accepted {
		return
	}

	if res.Changed {
		if res.Attached {
			slog.Info("jetway attached")
			e.Emit(sink.AudioAt(sink.AudioBoardingMusic, 100))
			e.startBoarding()
		} else {
			slog.Info("jetway detached")
			e.stopBoarding()
			e.Emit(sink.AudioAt(sink.AudioBoardingMusic, 0))
			e.sched.Start(context.WithoutCancel(e.parent), sequence.NewDoors(e.cfg.Timing), e.Emit)
		}
	}
	e.Emit(sink.New(sink.EventData, snap))
}

func (e *Engine) toggleJetway() {
	now := e.clk.Now()
	var res cabin.ToggleResult
	var snap map[string]any
	e.cabin.Update(func(s *cabin.State) {
		res = s.ToggleJetway(now)
		snap = s.Snapshot()
	})
	if !res.Accepted {
		slog.Debug("jetway toggle ignored: debounce")
		return
	}

	request := "detach"
	if res.Attached {
		request = "attach"
	} else if e.stopBoarding() {
		// Silence music left mid-fade.
		e.Emit(sink.AudioAt(sink.AudioBoardingMusic, 0))
	}
	slog.Info("jetway toggled", "request", request)
	e.Emit(sink.New(sink.EventData, snap))
}

// startBoarding launches the boarding sequence, cancelling any previous one.
func (e *Engine) startBoarding() {
	e.stopBoarding()
	ctx, cancel := context.WithCancel(e.parent)
	e.cancelBoarding = cancel
	plan := sequence.NewBoarding(e.cabin, e.clk, e.cfg.Timing, e.cfg.Jitter)
	e.sched.Start(ctx, plan, e.Emit)
}

// stopBoarding cancels the boarding sequence. It reports whether one was
// running.
func (e *Engine) stopBoarding() bool {
	if e.cancelBoarding == nil {
		return false
	}
	e.cancelBoarding()
	e.cancelBoarding = nil
	return true
}

func (e *Engine) observeCamera(code int32) {
	var view cabin.CameraView
	var changed bool
	var payload map[string]any
	e.cabin.Update(func(s *cabin.State) {
		view, changed = s.ObserveCamera(code)
		payload = s.CameraPayload()
	})
	if view.ViewType == cabin.ViewUnknown {
		slog.Debug("unknown camera state", "code", code)
	}
	if !changed {
		return
	}
	slog.Debug("camera view changed", "view", view.ViewType, "code", code)
	e.Emit(sink.New(sink.EventCamera, payload))
}

func (e *Engine) observeAxis(r telemetry.CameraAxis) {
	var changed bool
	var payload map[string]any
	e.cabin.Update(func(s *cabin.State) {
		changed = s.ObserveAxis(r.Axis, r.Value)
		payload = s.CameraPayload()
	})
	if changed {
		e.Emit(sink.New(sink.EventCamera, payload))
	}
}

func (e *Engine) observeBypassPin(r telemetry.BypassPin) {
	var changed, inserted bool
	var volume float64
	var snap map[string]any
	e.cabin.Update(func(s *cabin.State) {
		changed, inserted = s.ObserveBypassPin(r.Inserted())
		volume = s.VolumeLevel
		snap = s.Snapshot()
	})
	if !changed {
		return
	}
	slog.Info("bypass pin changed", "inserted", inserted, "alternate", r.Alternate)
	if inserted {
		e.Emit(sink.AudioAt(sink.AudioSafetyVideo, volume))
	}
	e.Emit(sink.New(sink.EventData, snap))
}
