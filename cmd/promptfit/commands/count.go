package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newCountCmd constructs the `promptfit count` command.
func newCountCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "count [text]",
		Short: "Print the token count of text",
		Long: `Print the number of tokens the configured tokenizer assigns to text.

Examples:
  promptfit count "hello world"
  TOKENIZER_ENCODING=cl100k_base promptfit count --file prompt.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args, file)
			if err != nil {
				return fmt.Errorf("count: %w", err)
			}
			c, err := a.newCounter()
			if err != nil {
				return fmt.Errorf("count: %w", err)
			}
			n, err := c.Count(text)
			if err != nil {
				return fmt.Errorf("count: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read input from file ('-' for stdin)")

	return cmd
}
