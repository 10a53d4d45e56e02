package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// trimStats is the --stats payload: the Result without the prompt text.
type trimStats struct {
	Budget       int  `json:"budget"`
	TokensBefore int  `json:"tokensBefore"`
	TokensAfter  int  `json:"tokensAfter"`
	Iterations   int  `json:"iterations"`
	HardCut      bool `json:"hardCut"`
	Trimmed      bool `json:"trimmed"`
}

// newTrimCmd constructs the `promptfit trim` command.
func newTrimCmd(a *app) *cobra.Command {
	var (
		budget int
		file   string
		stats  bool
	)

	cmd := &cobra.Command{
		Use:   "trim [text]",
		Short: "Trim text to fit a token budget",
		Long: `Trim text until its token count fits the budget and print the result.

Input is read from --file, the positional arguments, or stdin, in that order.
The budget defaults to CONTEXT_SIZE.

Examples:
  promptfit trim --budget 100 "a long prompt ..."
  promptfit trim --file context.md --budget 4000 --stats
  cat transcript.txt | promptfit trim --budget 8000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args, file)
			if err != nil {
				return fmt.Errorf("trim: %w", err)
			}
			b, err := a.budgetOrDefault(cmd, budget)
			if err != nil {
				return fmt.Errorf("trim: %w", err)
			}

			t, _, err := a.newTrimmer()
			if err != nil {
				return fmt.Errorf("trim: %w", err)
			}
			res, err := t.Fit(text, b)
			if err != nil {
				return fmt.Errorf("trim: %w", err)
			}

			if _, err := fmt.Fprintln(cmd.OutOrStdout(), res.Prompt); err != nil {
				return fmt.Errorf("trim: write output: %w", err)
			}
			if stats {
				enc := json.NewEncoder(cmd.ErrOrStderr())
				return enc.Encode(trimStats{
					Budget:       b,
					TokensBefore: res.TokensBefore,
					TokensAfter:  res.TokensAfter,
					Iterations:   res.Iterations,
					HardCut:      res.HardCut,
					Trimmed:      res.Trimmed,
				})
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&budget, "budget", "b", 0, "Token budget (default: CONTEXT_SIZE)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read input from file ('-' for stdin)")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print trim statistics as JSON to stderr")

	return cmd
}
