// Command simpa turns flight simulator telemetry into cabin announcement
// events.
package main

import (
	"os"

	"github.com/jackwaller57/simpa/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		cli.ReportError(cmd, err)
		os.Exit(cli.GetExitCode(err))
	}
}
