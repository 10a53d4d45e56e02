package commands

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/cloudwego/eino/schema"
	"github.com/spf13/cobra"

	"github.com/54b3r/promptfit/internal/splitter"
)

// newSplitCmd constructs the `promptfit split` command.
func newSplitCmd(_ *app) *cobra.Command {
	var (
		file         string
		chunkSize    int
		chunkOverlap int
	)

	cmd := &cobra.Command{
		Use:   "split [text]",
		Short: "Split text into boundary-aware chunks",
		Long: `Split text at paragraph, line, sentence and word boundaries into chunks of at most
--chunk-size characters and print one JSON document per line.

Examples:
  promptfit split --chunk-size 500 --file notes.md
  promptfit split --chunk-size 200 --chunk-overlap 20 < README.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args, file)
			if err != nil {
				return fmt.Errorf("split: %w", err)
			}
			sp, err := splitter.New(splitter.Config{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap})
			if err != nil {
				return fmt.Errorf("split: %w", err)
			}

			id := "stdin"
			if file != "" && file != "-" {
				id = filepath.Base(file)
			} else if len(args) > 0 {
				id = "args"
			}

			docs, err := sp.Transform(cmd.Context(), []*schema.Document{{ID: id, Content: text}})
			if err != nil {
				return fmt.Errorf("split: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, d := range docs {
				if err := enc.Encode(d); err != nil {
					return fmt.Errorf("split: write output: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read input from file ('-' for stdin)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 1000, "Maximum chunk length in characters")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 0, "Characters carried over between chunks")

	return cmd
}
