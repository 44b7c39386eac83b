// Command gpures runs the GPU reservation engine.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/gpures/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
