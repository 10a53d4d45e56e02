package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/promptfit/internal/version"
)

// newVersionCmd constructs the `promptfit version` subcommand. It prints the
// version, git commit and build date injected at build time via -ldflags.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the promptfit version, git commit, and build date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}
