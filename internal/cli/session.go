package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jackwaller57/simpa/internal/config"
	"github.com/jackwaller57/simpa/internal/engine"
	"github.com/jackwaller57/simpa/internal/session"
	"github.com/jackwaller57/simpa/internal/sink"
)

const shutdownTimeout = 5 * time.Second

// SessionOptions are the flags shared by run and console. Flags left unset
// keep the value from the environment.
type SessionOptions struct {
	*RootOptions
	Addr     string
	Discover bool
	Listen   string
	Tuning   string

	// IDs overrides the session ID generator (for testing).
	IDs session.IDGenerator
}

func (o *SessionOptions) bindFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Addr, "addr", "", "telemetry bridge address (default $SIMPA_BRIDGE_ADDR)")
	cmd.Flags().BoolVar(&o.Discover, "discover", false, "find the bridge with mDNS")
	cmd.Flags().StringVar(&o.Listen, "listen", "", "websocket listen address; \"off\" disables (default $SIMPA_LISTEN)")
	cmd.Flags().StringVar(&o.Tuning, "tuning", "", "CUE tuning file (default $SIMPA_TUNING_FILE)")
}

// settings merges the environment with the command flags.
func (o *SessionOptions) settings() (config.Env, config.Tuning, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return config.Env{}, config.Tuning{}, err
	}
	if o.Addr != "" {
		env.BridgeAddr = o.Addr
	}
	if o.Discover {
		env.Discover = true
	}
	if o.Listen != "" {
		env.Listen = o.Listen
	}
	if env.Listen == "off" {
		env.Listen = ""
	}
	if o.Tuning != "" {
		env.TuningFile = o.Tuning
	}
	tuning, err := env.Tuning()
	if err != nil {
		return config.Env{}, config.Tuning{}, err
	}
	return env, tuning, nil
}

// setupLogging installs the default text logger on w.
func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// newController wires a lifecycle controller to the bridge client.
func newController(env config.Env, tuning config.Tuning, out sink.Sink, ids session.IDGenerator) *session.Controller {
	clientCfg := env.ClientConfig()
	opts := []session.Option{
		session.WithSetupTimeout(env.SetupTimeout),
		session.WithEngineOptions(engine.WithConfig(tuning.EngineConfig())),
	}
	if ids != nil {
		opts = append(opts, session.WithIDGenerator(ids))
	}
	return session.NewController(bridgeSource(clientCfg), out, opts...)
}

// serveHub serves the websocket hub on addr within g until ctx ends.
// An empty addr serves nothing.
func serveHub(ctx context.Context, g *errgroup.Group, addr string, hub *sink.Hub) error {
	if addr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: hub.Handler(), ReadHeaderTimeout: 5 * time.Second}
	slog.Info("serving UI events", "addr", ln.Addr().String())

	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return nil
}

// toggleOnCommand routes UI toggle commands to the running session.
func toggleOnCommand(ctl *session.Controller) func(sink.Command) {
	return func(sink.Command) {
		if !ctl.RequestToggle() {
			slog.Debug("jetway toggle ignored: no session running")
		}
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
