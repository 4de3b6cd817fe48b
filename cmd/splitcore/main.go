// Command splitcore drives a core thread from concurrent producer queues.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/splitcore/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
