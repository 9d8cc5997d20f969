// Command storygram matches and applies graph-grammar productions to story
// worlds.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/storygram/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil && !cli.Reported(err) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
