// Command promptfit trims prompts to a token budget. It provides a CLI
// (via Cobra) for one-off trimming, counting and splitting, an `ask` command
// that sends a fitted prompt to an LLM, and an HTTP server for other services.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/promptfit/cmd/promptfit/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
