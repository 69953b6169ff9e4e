// Command keycore compiles keymaps and drives the keyboard firmware core.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/keycore/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
