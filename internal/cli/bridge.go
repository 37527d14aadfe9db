package cli

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jackwaller57/simpa/internal/bridge"
	"github.com/jackwaller57/simpa/internal/harness"
)

// BridgeOptions holds flags for the bridge command.
type BridgeOptions struct {
	*RootOptions
	Addr      string
	Speed     float64
	Advertise bool
	Instance  string
}

// NewBridgeCommand creates the bridge command.
func NewBridgeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BridgeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bridge <scenario.yaml>",
		Short: "Serve a scenario as a telemetry host",
		Long: `Serve a scenario's telemetry script to bridge clients, for running
"simpa run" or "simpa console" without a simulator.

Each client that subscribes receives the scenario's steps in real time;
advance steps become delays scaled by --speed (0 plays without delays).
With --advertise the host is announced over mDNS so clients started
with --discover find it.

Examples:
  simpa bridge ./scenarios/boarding_cycle.yaml
  simpa bridge ./scenarios/detach_doors.yaml --speed 10 --advertise`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBridge(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "127.0.0.1:5800", "listen address")
	cmd.Flags().Float64Var(&opts.Speed, "speed", 1, "playback speed multiplier")
	cmd.Flags().BoolVar(&opts.Advertise, "advertise", false, "announce the host over mDNS")
	cmd.Flags().StringVar(&opts.Instance, "instance", "simpa-bridge", "mDNS instance name")

	return cmd
}

func runBridge(opts *BridgeOptions, path string, cmd *cobra.Command) error {
	setupLogging(cmd.ErrOrStderr(), opts.Verbose)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	cues, err := scenario.Cues()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build feed", err)
	}

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	addr := ln.Addr().(*net.TCPAddr)

	if opts.Advertise {
		zs, err := bridge.Advertise(opts.Instance, addr.Port, scenario.Name)
		if err != nil {
			_ = ln.Close()
			return WrapExitError(ExitCommandError, "failed to advertise", err)
		}
		defer zs.Shutdown()
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	f.Textf("Serving %s (%d messages) on %s\n", scenario.Name, len(cues), addr)

	srv := bridge.NewServer(cues, bridge.WithSpeed(opts.Speed))
	if err := srv.Serve(ctx, ln); err != nil {
		return WrapExitError(ExitFailure, "bridge error", fmt.Errorf("serve %s: %w", addr, err))
	}
	return nil
}
