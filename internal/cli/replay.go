package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackwaller57/simpa/internal/harness"
)

// ReplayResult is the JSON output of the replay command.
type ReplayResult struct {
	Scenario string               `json:"scenario"`
	Pass     bool                 `json:"pass"`
	Ended    bool                 `json:"ended"`
	Elapsed  string               `json:"elapsed"`
	Trace    []harness.TraceEvent `json:"trace"`
	Errors   []string             `json:"errors,omitempty"`
	State    map[string]any       `json:"state"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Replay a scenario offline and print its event trace",
		Long: `Replay a scenario against a fresh engine on a virtual clock and print
every emitted event, one per line, with the scenario time it was emitted at.

The output matches the golden trace format used by "simpa test --golden".

Exit codes:
  0 - Trace printed and every assertion held
  1 - One or more assertions failed
  2 - Command error (unreadable or invalid scenario)

Examples:
  simpa replay ./scenarios/detach_doors.yaml
  simpa replay ./scenarios/boarding_cycle.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runReplay(opts *RootOptions, path string, cmd *cobra.Command) error {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	f := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Diag:    cmd.ErrOrStderr(),
		Verbose: opts.Verbose,
	}
	f.VerboseLog("replayed %s: %d steps, ended=%t", scenario.Name, len(scenario.Steps), result.Ended)

	var failure *ExitError
	if !result.Pass {
		failure = NewExitError(ExitFailure, fmt.Sprintf("%d assertion(s) failed", len(result.Errors))).
			withKind(CodeAssertionsFailed)
	}

	if opts.Format == "json" {
		out := ReplayResult{
			Scenario: scenario.Name,
			Pass:     result.Pass,
			Ended:    result.Ended,
			Elapsed:  result.Elapsed.String(),
			Trace:    result.Trace,
			Errors:   result.Errors,
			State:    result.State,
		}
		if failure != nil {
			return f.Fail(out, failure)
		}
		return f.Success(out)
	}

	w := cmd.OutOrStdout()
	_, _ = w.Write(harness.TraceText(result.Trace))
	f.Textf("\n%s: %d events over %s\n", scenario.Name, len(result.Trace), result.Elapsed)
	for _, e := range result.Errors {
		fmt.Fprintln(w, e)
	}
	if failure != nil {
		return failure
	}
	return nil
}
