package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/promptfit/internal/tokenizer"
	"github.com/54b3r/promptfit/internal/trim"
)

// errNoInput is returned when a command gets neither args, --file nor stdin.
var errNoInput = errors.New("no input: pass text as arguments, use --file, or pipe to stdin")

// readInput returns the command's text input: --file wins, then positional
// arguments joined by spaces, then stdin.
func readInput(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case file == "-":
		return readAll(cmd.InOrStdin())
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(data), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	}

	if f, ok := cmd.InOrStdin().(*os.File); ok {
		if fi, err := f.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
			return "", errNoInput
		}
	}
	return readAll(cmd.InOrStdin())
}

// readAll reads r to EOF.
func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// newCounter returns the shared tokenizer selected by the settings.
func (a *app) newCounter() (tokenizer.Counter, error) {
	c, err := tokenizer.Get(tokenizer.Backend(a.settings.TokenizerBackend), a.settings.TokenizerEncoding)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}
	return c, nil
}

// newTrimmer builds a Trimmer on the configured tokenizer.
func (a *app) newTrimmer() (*trim.Trimmer, tokenizer.Counter, error) {
	c, err := a.newCounter()
	if err != nil {
		return nil, nil, err
	}
	t, err := trim.New(c, trim.WithLogger(a.log))
	if err != nil {
		return nil, nil, err
	}
	return t, c, nil
}

// budgetOrDefault returns flag when it was set, CONTEXT_SIZE otherwise.
func (a *app) budgetOrDefault(cmd *cobra.Command, flag int) (int, error) {
	if !cmd.Flags().Changed("budget") {
		return a.settings.ContextSize, nil
	}
	if flag < 0 {
		return 0, fmt.Errorf("--budget must not be negative, got %d", flag)
	}
	if flag == 0 {
		return a.settings.ContextSize, nil
	}
	return flag, nil
}
