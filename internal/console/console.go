// Package console provides the interactive shell over the session lifecycle.
package console

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/chzyer/readline"

	"github.com/jackwaller57/simpa/internal/engine"
)

// Lifecycle is the session control surface the shell drives.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop()
	Status() bool
	SessionID() string
	Snapshot() map[string]any
	Stats() engine.Stats
	RequestToggle() bool
}

// Console reads commands and runs them against a Lifecycle.
type Console struct {
	ctl Lifecycle
	rl  *readline.Instance
	out io.Writer
}

// New creates a console attached to the terminal.
func New(ctl Lifecycle) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "simpa> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("start"),
			readline.PcItem("stop"),
			readline.PcItem("status"),
			readline.PcItem("state"),
			readline.PcItem("jetway"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{ctl: ctl, rl: rl, out: rl.Stdout()}, nil
}

// NewWithWriter creates a console without a terminal; commands are fed
// through Execute.
func NewWithWriter(ctl Lifecycle, out io.Writer) *Console {
	return &Console{ctl: ctl, out: out}
}

// Stdout returns a writer that coordinates with the prompt.
func (c *Console) Stdout() io.Writer { return c.out }

// Stderr returns a writer for log output that does not corrupt the prompt.
func (c *Console) Stderr() io.Writer {
	if c.rl != nil {
		return c.rl.Stderr()
	}
	return c.out
}

// Run reads commands until quit, end of input, or ctx ends. The session
// is stopped on the way out.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	if c.rl == nil {
		return
	}
	defer c.rl.Close()
	defer c.ctl.Stop()

	c.printHelp()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
		if c.Execute(ctx, line) {
			cancel()
			return
		}
	}
}

// Execute runs one command line and reports whether the shell should exit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}

	switch strings.ToLower(parts[0]) {
	case "help", "?":
		c.printHelp()
	case "start":
		c.cmdStart(ctx)
	case "stop":
		c.cmdStop()
	case "status", "s":
		c.cmdStatus()
	case "state":
		c.cmdState()
	case "jetway", "j":
		c.cmdJetway()
	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help')\n", parts[0])
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprint(c.out, `Commands:
  start    connect to the simulator and start a session
  stop     stop the running session
  status   show whether a session is running
  state    print the cabin state
  jetway   toggle the jetway
  help     show this help
  quit     stop and exit
`)
}

func (c *Console) cmdStart(ctx context.Context) {
	if err := c.ctl.Start(ctx); err != nil {
		fmt.Fprintf(c.out, "Start failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Session %s starting\n", c.ctl.SessionID())
}

func (c *Console) cmdStop() {
	if !c.ctl.Status() {
		fmt.Fprintln(c.out, "No session running")
		return
	}
	c.ctl.Stop()
	fmt.Fprintln(c.out, "Session stopped")
}

func (c *Console) cmdStatus() {
	if !c.ctl.Status() {
		fmt.Fprintln(c.out, "Status: stopped")
		return
	}
	st := c.ctl.Stats()
	fmt.Fprintf(c.out, "Status: running (session %s)\n", c.ctl.SessionID())
	fmt.Fprintf(c.out, "  records: %d  ignored: %d  emitted: %d  errors: %d\n",
		st.Records, st.Ignored, st.Emitted, st.TotalErrors)
}

func (c *Console) cmdState() {
	snap := c.ctl.Snapshot()
	if snap == nil {
		fmt.Fprintln(c.out, "No session yet")
		return
	}
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(c.out, "  %-22s %v\n", k, snap[k])
	}
}

func (c *Console) cmdJetway() {
	if !c.ctl.RequestToggle() {
		fmt.Fprintln(c.out, "No session running")
		return
	}
	fmt.Fprintln(c.out, "Jetway toggle requested")
}
