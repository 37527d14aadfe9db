package console

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackwaller57/simpa/internal/engine"
)

type fakeLifecycle struct {
	running  bool
	startErr error
	toggles  int
	stops    int
	snapshot map[string]any
}

func (f *fakeLifecycle) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	f.snapshot = map[string]any{"alt": 0.0, "jetwayState": false}
	return nil
}

func (f *fakeLifecycle) Stop() {
	f.stops++
	f.running = false
}

func (f *fakeLifecycle) Status() bool             { return f.running }
func (f *fakeLifecycle) SessionID() string        { return "session-1" }
func (f *fakeLifecycle) Snapshot() map[string]any { return f.snapshot }
func (f *fakeLifecycle) Stats() engine.Stats      { return engine.Stats{Records: 12, Emitted: 4} }
func (f *fakeLifecycle) RequestToggle() bool {
	if !f.running {
		return false
	}
	f.toggles++
	return true
}

func TestExecute_Lifecycle(t *testing.T) {
	ctl := &fakeLifecycle{}
	var out bytes.Buffer
	c := NewWithWriter(ctl, &out)
	ctx := context.Background()

	assert.False(t, c.Execute(ctx, "status"))
	assert.Contains(t, out.String(), "Status: stopped")

	out.Reset()
	c.Execute(ctx, "state")
	assert.Contains(t, out.String(), "No session yet")

	out.Reset()
	c.Execute(ctx, "start")
	assert.Contains(t, out.String(), "Session session-1 starting")
	assert.True(t, ctl.running)

	out.Reset()
	c.Execute(ctx, "  STATUS ")
	assert.Contains(t, out.String(), "running (session session-1)")
	assert.Contains(t, out.String(), "records: 12")

	out.Reset()
	c.Execute(ctx, "state")
	assert.Contains(t, out.String(), "alt")
	assert.Contains(t, out.String(), "jetwayState")

	c.Execute(ctx, "jetway")
	c.Execute(ctx, "j")
	assert.Equal(t, 2, ctl.toggles)

	out.Reset()
	c.Execute(ctx, "stop")
	assert.Contains(t, out.String(), "Session stopped")
	out.Reset()
	c.Execute(ctx, "stop")
	assert.Contains(t, out.String(), "No session running")
	assert.Equal(t, 1, ctl.stops)
}

func TestExecute_Errors(t *testing.T) {
	ctl := &fakeLifecycle{startErr: errors.New("ALREADY_RUNNING: SimConnect is already running")}
	var out bytes.Buffer
	c := NewWithWriter(ctl, &out)
	ctx := context.Background()

	c.Execute(ctx, "start")
	assert.Contains(t, out.String(), "Start failed: ALREADY_RUNNING")

	out.Reset()
	c.Execute(ctx, "jetway")
	assert.Contains(t, out.String(), "No session running")

	out.Reset()
	c.Execute(ctx, "dance")
	assert.Contains(t, out.String(), "Unknown command: dance")

	assert.False(t, c.Execute(ctx, ""))
}

func TestExecute_HelpAndQuit(t *testing.T) {
	var out bytes.Buffer
	c := NewWithWriter(&fakeLifecycle{}, &out)

	c.Execute(context.Background(), "help")
	for _, cmd := range []string{"start", "stop", "status", "state", "jetway", "quit"} {
		assert.Contains(t, out.String(), cmd)
	}
	require.True(t, c.Execute(context.Background(), "quit"))
	assert.True(t, c.Execute(context.Background(), "exit"))
	assert.Equal(t, &out, c.Stderr())
}
