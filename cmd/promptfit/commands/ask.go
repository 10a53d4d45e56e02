package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/schema"
	"github.com/spf13/cobra"

	promptbudget "github.com/54b3r/promptfit/internal/budget"
	"github.com/54b3r/promptfit/internal/provider"
	"github.com/54b3r/promptfit/internal/tracing"
)

// newAskCmd constructs the `promptfit ask` command: the question (plus any
// --file context) is trimmed to the budget and sent to the configured model.
func newAskCmd(a *app) *cobra.Command {
	var (
		budget int
		file   string
		system string
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Trim a prompt to the context size and send it to an LLM",
		Long: `Trim a prompt to fit the context size and send it to the model selected by
MODEL_PROVIDER. The prompt budget is CONTEXT_SIZE less MODEL_MAX_TOKENS
(reserved for the answer) and the system message, unless --budget is set.

When --file is given its content follows the question as context. Trimming
keeps the beginning of the prompt, so the tail of the context is cut first.

Calls are traced to Langfuse when LANGFUSE_PUBLIC_KEY and LANGFUSE_SECRET_KEY
are set.

Examples:
  promptfit ask "summarise the incident"
  promptfit ask --file incident.log --budget 8000 "what failed first?"
  MODEL_PROVIDER=openai promptfit ask "explain this stack trace" < trace.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := a.log

			prompt, err := askPrompt(cmd, args, file)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			chatModel, providerCfg, err := provider.NewFromEnv(ctx)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			var fixed []*schema.Message
			if system != "" {
				fixed = append(fixed, schema.SystemMessage(system))
			}

			t, counter, err := a.newTrimmer()
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			// Without --budget the prompt gets whatever the context window has
			// left after the system message and the response reservation.
			b := budget
			if !cmd.Flags().Changed("budget") {
				b, err = promptbudget.ForPrompt(counter, a.settings.ContextSize, providerCfg.Tuning.MaxTokens, fixed)
			} else {
				b, err = a.budgetOrDefault(cmd, budget)
			}
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			res, err := t.Fit(prompt, b)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			if res.Trimmed {
				log.Info("ask: prompt trimmed",
					slog.Int("budget", b),
					slog.Int("tokens_before", res.TokensBefore),
					slog.Int("tokens_after", res.TokensAfter),
					slog.Bool("hard_cut", res.HardCut),
				)
			}

			// Langfuse tracing is opt-in; handlers are attached only to this
			// call, never globally.
			var handlers []callbacks.Handler
			if h, flush, ok := tracing.Setup(); ok {
				handlers = append(handlers, h)
				defer flush()
				log.Debug("langfuse tracing enabled")
			}

			gen := provider.Instrument(chatModel, handlers,
				provider.WithModelConfig(provider.ConfigOf(providerCfg)),
				provider.WithExtra(map[string]any{
					"budget":        b,
					"tokens_before": res.TokensBefore,
					"tokens_after":  res.TokensAfter,
					"hard_cut":      res.HardCut,
				}),
			)

			msgs := append(fixed, schema.UserMessage(res.Prompt))

			out, err := gen.Generate(ctx, msgs)
			if err != nil {
				return fmt.Errorf("ask: %s: %w", providerCfg.Backend, err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out.Content)
			return err
		},
	}

	cmd.Flags().IntVarP(&budget, "budget", "b", 0, "Token budget for the prompt (default: CONTEXT_SIZE minus MODEL_MAX_TOKENS and the system message)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Context file appended after the question")
	cmd.Flags().StringVar(&system, "system", "", "Optional system message (not trimmed)")

	return cmd
}

// askPrompt builds the user prompt. With --file the question comes first and
// the file content after it, so trimming cuts context before the question.
func askPrompt(cmd *cobra.Command, args []string, file string) (string, error) {
	if file == "" {
		return readInput(cmd, args, "")
	}
	ctxText, err := readInput(cmd, nil, file)
	if err != nil {
		return "", err
	}
	if len(args) == 0 {
		return ctxText, nil
	}
	return strings.Join(args, " ") + "\n\n" + ctxText, nil
}
