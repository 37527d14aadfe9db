package cli

import (
	"bytes"
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackwaller57/simpa/internal/bridge"
	"github.com/jackwaller57/simpa/internal/telemetry"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestBridge_ServesScenario(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "climb", passingScenario)
	addr := freeAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&lockedBuffer{})
	cmd.SetArgs([]string{"bridge", path, "--addr", addr, "--speed", "0"})
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	c := bridge.NewClient(bridge.ClientConfig{Addr: addr, Attempts: 20, RetryDelay: 50 * time.Millisecond})
	defer c.Close()
	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.Register(ctx, telemetry.Definitions()))

	var got []telemetry.Message
	for {
		msg, err := c.Next(ctx)
		if errors.Is(err, telemetry.ErrNoData) {
			continue
		}
		if err != nil {
			require.ErrorIs(t, err, telemetry.ErrClosed)
			break
		}
		got = append(got, msg)
	}
	assert.Equal(t, []telemetry.Message{
		telemetry.Opened{},
		telemetry.Record(telemetry.TagAltitude, 9000),
		telemetry.Record(telemetry.TagAltitude, 11000),
		telemetry.Closed{},
	}, got)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("bridge did not stop")
	}
	assert.Contains(t, out.String(), "Serving climb (4 messages) on "+addr)
}

func TestBridge_MissingScenario(t *testing.T) {
	_, err := executeCommand("bridge", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
