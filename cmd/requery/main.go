// Command requery compiles CUE query documents into finalized query plans.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/requery/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
