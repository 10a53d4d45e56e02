// Package commands defines all Cobra CLI commands for the promptfit binary.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/promptfit/internal/audit"
	"github.com/54b3r/promptfit/internal/config"
	"github.com/54b3r/promptfit/internal/logging"
)

// app is the state resolved once by the root command and shared by every
// subcommand.
type app struct {
	// configPath holds the --config flag value.
	configPath string
	// loadedConfigPath is the config file actually applied, for audit logging.
	loadedConfigPath string
	// log is the process logger built from LOG_LEVEL / LOG_FORMAT.
	log *slog.Logger
	// settings is the validated environment.
	settings *config.Settings
}

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "promptfit",
		Short: "promptfit: trim prompts to fit a model's token budget",
		Long: `promptfit shortens prompts until they fit a token budget.

It cuts at paragraph, line, sentence and word boundaries where it can, and falls back
to a plain character cut for prompts that are already short. Token counts
come from an embedded BPE tokenizer (o200k_base by default).

The default budget is CONTEXT_SIZE, set in the environment or in a YAML/TOML
config file (~/.promptfit/config.yaml).
See 'promptfit --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Config file values land in the environment first so LOG_LEVEL
			// from the file is honoured by the logger below.
			path, err := config.Load(a.configPath, slog.New(slog.DiscardHandler))
			if err != nil {
				return err
			}
			a.loadedConfigPath = path
			a.log = logging.New()

			audit.LogCommandStart(cmd.Context(), a.log, cmd.Name(), a.loadedConfigPath)

			a.settings, err = config.FromEnv()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to YAML or TOML config file (default: ~/.promptfit/config.yaml)")

	root.AddCommand(
		newTrimCmd(a),
		newCountCmd(a),
		newSplitCmd(a),
		newAskCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)

	return root
}
