// Package budget works out how many tokens of a model's context window are
// left for the user prompt once the fixed messages and the response
// reservation are accounted for.
package budget

import (
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"
)

// messageOverhead approximates the per-message framing tokens (role markers,
// separators) most chat APIs add around content.
const messageOverhead = 4

// ErrNoRoom is returned when the fixed messages and the response reservation
// already fill the context window.
var ErrNoRoom = errors.New("budget: no room left for the prompt")

// Counter counts tokens in text.
type Counter interface {
	Count(text string) (int, error)
}

// CountMessages returns the token count of msgs including per-message
// framing overhead.
func CountMessages(c Counter, msgs []*schema.Message) (int, error) {
	total := 0
	for _, m := range msgs {
		if m == nil {
			continue
		}
		n, err := c.Count(m.Content)
		if err != nil {
			return 0, fmt.Errorf("budget: count %s message: %w", m.Role, err)
		}
		total += messageOverhead + n
	}
	return total, nil
}

// ForPrompt returns the token budget for one more user message given the
// context window size, the tokens reserved for the response, and the fixed
// messages sent ahead of it (system prompt and the like).
func ForPrompt(c Counter, contextSize, reserve int, fixed []*schema.Message) (int, error) {
	used, err := CountMessages(c, fixed)
	if err != nil {
		return 0, err
	}
	left := contextSize - max(reserve, 0) - used - messageOverhead
	if left <= 0 {
		return 0, fmt.Errorf("%w: context %d, reserved %d, fixed messages %d", ErrNoRoom, contextSize, reserve, used)
	}
	return left, nil
}
