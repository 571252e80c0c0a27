// Command bequest manages conditional asset-release plans.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/bequest/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
