/*
PURPOSE:
  Entry point for the Speedtest Runner application.
  Initializes the CLI root command and executes it.

REQUIREMENTS:
  User-specified:
  - Must serve as the single binary entry point.
  - Any failure exits with status -1 after printing the error.

ARCHITECTURE INTEGRATION:
  - Calls: internal/cli.Execute()

IMPLEMENTATION RULES:
  - Keep main() minimal. All logic belongs in internal/ packages.

USAGE:
  go build -o speedtest-runner ./cmd/speedtest-runner
  ./speedtest-runner run --csv
*/

package main

import (
	"fmt"
	"os"

	"github.com/daryltucker/speedtest-runner/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(-1)
	}
}
