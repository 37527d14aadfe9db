// Package session is the lifecycle controller: it starts and stops one
// telemetry session at a time and reports whether a session is running.
//
// Each session gets a fresh engine and cabin state, a UUIDv7 session ID, and
// exactly one simconnect-quit event however it ends.
package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jackwaller57/simpa/internal/engine"
	"github.com/jackwaller57/simpa/internal/sink"
	"github.com/jackwaller57/simpa/internal/telemetry"
)

// DefaultSetupTimeout bounds registering definitions with the host.
const DefaultSetupTimeout = 10 * time.Second

// SourceFactory creates the telemetry source for a new session.
type SourceFactory func() telemetry.Source

// Controller owns the running flag and the current session.
//
// Thread-safety: all methods are safe for concurrent use.
type Controller struct {
	newSource    SourceFactory
	out          sink.Sink
	ids          IDGenerator
	engineOpts   []engine.Option
	setupTimeout time.Duration

	mu      sync.Mutex
	running bool
	cur     *run
	lastErr error
	wg      sync.WaitGroup
}

type run struct {
	id     string
	eng    *engine.Engine
	cancel context.CancelFunc
	quit   sync.Once
	done   chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithIDGenerator sets the session ID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Controller) { c.ids = g }
}

// WithEngineOptions passes options to every session's engine.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(c *Controller) { c.engineOpts = append(c.engineOpts, opts...) }
}

// WithSetupTimeout bounds definition registration.
func WithSetupTimeout(d time.Duration) Option {
	return func(c *Controller) { c.setupTimeout = d }
}

// NewController creates a stopped controller.
func NewController(newSource SourceFactory, out sink.Sink, opts ...Option) *Controller {
	c := &Controller{
		newSource:    newSource,
		out:          out,
		ids:          UUIDv7Generator{},
		setupTimeout: DefaultSetupTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins a new session in the background and returns immediately.
//
// If a session is already running, Start emits a simconnect-error event and
// returns an ALREADY_RUNNING error. Connection and setup failures happen
// later; they are emitted as simconnect-error events and reported by Err.
// The session lives until Stop, the host quits, or ctx is cancelled.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		cur := c.cur
		c.mu.Unlock()
		cur.eng.Emit(sink.Message(sink.EventError, msgAlreadyRunning))
		return &Error{Code: ErrCodeAlreadyRunning, Message: msgAlreadyRunning, Session: cur.id}
	}

	r := &run{id: c.ids.Generate(), done: make(chan struct{})}
	opts := append(slices.Clone(c.engineOpts), engine.WithQuitHandler(func() { c.quit(r) }))
	r.eng = engine.New(c.out, opts...)
	ctx, r.cancel = context.WithCancel(ctx)

	c.running = true
	c.cur = r
	c.lastErr = nil
	c.wg.Add(1)
	c.mu.Unlock()

	slog.Info("session starting", "session", r.id)
	go c.serve(ctx, r)
	return nil
}

// Stop ends the current session. It clears the running flag, cancels the
// dispatch loop and its scheduled sequences, and emits simconnect-quit once.
// Calling Stop when nothing runs is a no-op and emits nothing, so a session
// never sees a second quit.
func (c *Controller) Stop() {
	c.mu.Lock()
	r := c.cur
	wasRunning := c.running
	c.running = false
	c.mu.Unlock()

	if r == nil || !wasRunning {
		return
	}
	slog.Info("session stopping", "session", r.id)
	r.cancel()
	<-r.done
	c.quit(r)
}

// Status reports whether a session is running.
func (c *Controller) Status() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SessionID returns the ID of the current or most recent session.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return ""
	}
	return c.cur.id
}

// Snapshot returns the state of the current or most recent session, or nil
// before the first Start.
func (c *Controller) Snapshot() map[string]any {
	if r := c.current(); r != nil {
		return r.eng.Snapshot()
	}
	return nil
}

// Stats returns the counters of the current or most recent session.
func (c *Controller) Stats() engine.Stats {
	if r := c.current(); r != nil {
		return r.eng.Stats()
	}
	return engine.Stats{}
}

// RequestToggle asks the running session to toggle the jetway.
// Returns false when no session is running.
func (c *Controller) RequestToggle() bool {
	c.mu.Lock()
	r, running := c.cur, c.running
	c.mu.Unlock()
	if !running {
		return false
	}
	return r.eng.RequestToggle()
}

// Done returns a channel closed when the current session ends. Before the
// first Start it returns a closed channel.
func (c *Controller) Done() <-chan struct{} {
	if r := c.current(); r != nil {
		return r.done
	}
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Err returns the failure that ended the most recent session, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Wait blocks until every session goroutine has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) current() *run {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *Controller) serve(ctx context.Context, r *run) {
	defer c.wg.Done()
	defer close(r.done)
	defer r.cancel()

	logger := slog.With("session", r.id)
	src := c.newSource()
	defer func() {
		if err := src.Close(); err != nil {
			logger.Debug("closing telemetry source", "error", err)
		}
	}()

	if err := src.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		c.fail(r, &Error{Code: ErrCodeConnectFailed, Message: msgConnectFailed, Session: r.id, Err: err})
		return
	}
	logger.Info("connected to telemetry host")

	setupCtx, cancel := context.WithTimeout(ctx, c.setupTimeout)
	err := src.Register(setupCtx, telemetry.Definitions())
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.fail(r, newSetupError(r.id, err))
		return
	}

	if err := r.eng.Run(ctx, src); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("dispatch loop ended", "error", err)
	}
	c.quit(r)
}

// fail ends a session that never reached its dispatch loop.
func (c *Controller) fail(r *run, err *Error) {
	slog.Error("session failed", "session", r.id, "code", err.Code, "error", err.Err)
	r.eng.Emit(sink.Message(sink.EventError, err.Message))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
	if c.cur == r {
		c.running = false
	}
	// A failed session never opened, so it has nothing to quit.
	r.quit.Do(func() {})
}

// quit clears the running flag for r and emits its single quit event.
func (c *Controller) quit(r *run) {
	r.quit.Do(func() {
		c.mu.Lock()
		if c.cur == r {
			c.running = false
		}
		c.mu.Unlock()
		r.eng.Emit(sink.New(sink.EventQuit, nil))
		slog.Info("session ended", "session", r.id)
	})
}
