package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jackwaller57/simpa/internal/bridge"
	"github.com/jackwaller57/simpa/internal/session"
	"github.com/jackwaller57/simpa/internal/sink"
	"github.com/jackwaller57/simpa/internal/telemetry"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&SessionOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *SessionOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one telemetry session",
		Long: `Connect to the telemetry bridge and run one session until the host quits
or the process receives SIGINT/SIGTERM.

Events are written to stdout as JSON lines and broadcast to websocket
clients on --listen (path /events). Clients may send
{"command":"toggle_jetway"} to toggle the jetway.

Example:
  simpa run --addr 127.0.0.1:5800
  simpa run --discover --listen 127.0.0.1:7420 --tuning ./tuning.cue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, cmd)
		},
	}
	opts.bindFlags(cmd)

	return cmd
}

func runSession(opts *SessionOptions, cmd *cobra.Command) error {
	setupLogging(cmd.ErrOrStderr(), opts.Verbose)

	env, tuning, err := opts.settings()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	sigCtx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	slog.Info("connecting to telemetry bridge", "addr", describeAddr(env.ClientConfig()))
	hub := sink.NewHub(sink.DefaultClientBuffer)
	ctl := newController(env, tuning, sink.Multi{sink.NewJSONLines(cmd.OutOrStdout()), hub}, opts.IDs)
	hub.OnCommand(toggleOnCommand(ctl))

	g, gctx := errgroup.WithContext(ctx)
	if err := serveHub(gctx, g, env.Listen, hub); err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	if err := ctl.Start(gctx); err != nil {
		cancel()
		_ = g.Wait()
		return WrapExitError(ExitFailure, "failed to start session", err)
	}

	g.Go(func() error {
		select {
		case <-ctl.Done():
		case <-gctx.Done():
		}
		ctl.Stop()
		cancel()
		return nil
	})

	err = g.Wait()
	ctl.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "server error", err)
	}
	if err := ctl.Err(); err != nil {
		return WrapExitError(ExitFailure, "session failed", err)
	}

	stats := ctl.Stats()
	slog.Info("session finished",
		"session", ctl.SessionID(),
		"records", stats.Records,
		"emitted", stats.Emitted,
		"errors", stats.TotalErrors,
	)
	return nil
}

// bridgeSource returns a factory creating one bridge client per session.
func bridgeSource(cfg bridge.ClientConfig) session.SourceFactory {
	return func() telemetry.Source { return bridge.NewClient(cfg) }
}

func describeAddr(cfg bridge.ClientConfig) string {
	if cfg.Addr == bridge.AddrAuto {
		return fmt.Sprintf("mDNS %s", bridge.ServiceType)
	}
	return cfg.Addr
}
