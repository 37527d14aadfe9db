package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jackwaller57/simpa/internal/console"
	"github.com/jackwaller57/simpa/internal/sink"
)

// NewConsoleCommand creates the console command.
func NewConsoleCommand(rootOpts *RootOptions) *cobra.Command {
	return newConsoleCommand(&SessionOptions{RootOptions: rootOpts})
}

func newConsoleCommand(opts *SessionOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Drive sessions from an interactive shell",
		Long: `Open an interactive shell that starts and stops telemetry sessions.

Commands: start, stop, status, state, jetway, help, quit.
UI events are broadcast to websocket clients on --listen.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(opts, cmd)
		},
	}
	opts.bindFlags(cmd)

	return cmd
}

func runConsole(opts *SessionOptions, cmd *cobra.Command) error {
	env, tuning, err := opts.settings()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	sigCtx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	hub := sink.NewHub(sink.DefaultClientBuffer)
	ctl := newController(env, tuning, hub, opts.IDs)
	hub.OnCommand(toggleOnCommand(ctl))

	con, err := console.New(ctl)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open console", err)
	}
	setupLogging(con.Stderr(), opts.Verbose)

	g, gctx := errgroup.WithContext(ctx)
	if err := serveHub(gctx, g, env.Listen, hub); err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	con.Run(gctx, cancel)
	cancel()
	err = g.Wait()
	ctl.Wait()
	setupLogging(os.Stderr, opts.Verbose)
	if err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "server error", err)
	}
	return nil
}
