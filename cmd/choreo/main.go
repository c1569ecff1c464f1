// Command choreo compiles, plays and verifies declarative animation
// timelines.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/choreo/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands print their own structured errors; cobra's usage and
		// flag errors arrive here unprinted.
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
