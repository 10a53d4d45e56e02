// Package trim reduces a prompt until its token count fits a budget.
//
// Each pass estimates how many characters the overflow represents, asks a
// boundary-aware splitter for a shorter prefix of the prompt and re-counts.
// Two hard cuts guarantee termination: prompts whose estimated size drops
// below the minimum chunk size are cut to that size, and a splitter that
// makes no progress is bypassed with an exact cut at the estimate.
package trim

import (
	"fmt"
	"log/slog"

	"github.com/54b3r/promptfit/internal/splitter"
	"github.com/54b3r/promptfit/internal/tokenizer"
)

const (
	// DefaultMinChunkSize is the hard-cut floor, in runes. No boundary-aware
	// splitting is attempted below it.
	DefaultMinChunkSize = 140

	// DefaultCharsPerToken converts overflow tokens to characters. It is an
	// average for English text; the trimmer does not correct it from data.
	DefaultCharsPerToken = 3

	// iterationSlack is added to the length-derived iteration cap.
	iterationSlack = 16
)

// Counter reports the token length of text.
type Counter interface {
	Count(text string) (int, error)
}

// Splitter splits text into ordered chunks. Only the first chunk is used.
type Splitter interface {
	SplitText(text string) ([]string, error)
}

// SplitterFactory builds a Splitter for one chunk size. The trimmer always
// passes an overlap of zero.
type SplitterFactory func(chunkSize, chunkOverlap int) (Splitter, error)

// RecursiveSplitter is the default SplitterFactory.
func RecursiveSplitter(chunkSize, chunkOverlap int) (Splitter, error) {
	s, err := splitter.New(splitter.Config{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Result describes one trim.
type Result struct {
	// Prompt is the trimmed text.
	Prompt string `json:"prompt"`
	// TokensBefore is the token count of the input.
	TokensBefore int `json:"tokensBefore"`
	// TokensAfter is the token count of Prompt. It can exceed the budget
	// only when the hard-cut floor ended the trim.
	TokensAfter int `json:"tokensAfter"`
	// Iterations is the number of reductions applied.
	Iterations int `json:"iterations"`
	// HardCut is true when any exact character cut was applied.
	HardCut bool `json:"hardCut"`
	// Trimmed is true when Prompt differs from the input.
	Trimmed bool `json:"trimmed"`
}

// Trimmer trims prompts to a token budget. It holds no mutable state and is
// safe for concurrent use.
type Trimmer struct {
	counter       Counter
	newSplitter   SplitterFactory
	minChunkSize  int
	charsPerToken int
	maxIterations int
	log           *slog.Logger
}

// New returns a Trimmer counting tokens with counter.
func New(counter Counter, opts ...Option) (*Trimmer, error) {
	if counter == nil {
		return nil, fmt.Errorf("trim: counter must not be nil")
	}
	t := &Trimmer{
		counter:       counter,
		newSplitter:   RecursiveSplitter,
		minChunkSize:  DefaultMinChunkSize,
		charsPerToken: DefaultCharsPerToken,
		log:           slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Trim returns prompt reduced to fit budget tokens, or its first
// MinChunkSize runes when no boundary-aware reduction can get there. The
// result is never shorter than min(MinChunkSize, len(prompt)) runes.
// Errors come only from the counter or the splitter.
func (t *Trimmer) Trim(prompt string, budget int) (string, error) {
	res, err := t.Fit(prompt, budget)
	if err != nil {
		return "", err
	}
	return res.Prompt, nil
}

// Fit is Trim with statistics.
func (t *Trimmer) Fit(prompt string, budget int) (Result, error) {
	res := Result{Prompt: prompt}
	if prompt == "" {
		return res, nil
	}

	current := []rune(prompt)
	limit := t.iterationCap(len(current))

	for first := true; ; first = false {
		text := string(current)
		length, err := t.counter.Count(text)
		if err != nil {
			return Result{}, fmt.Errorf("trim: count tokens: %w", err)
		}
		if first {
			res.TokensBefore = length
		}
		if length <= budget {
			return t.finish(res, prompt, text, length), nil
		}

		if res.Iterations >= limit {
			t.log.Warn("trim: iteration cap reached, applying hard cut",
				slog.Int("iterations", res.Iterations),
				slog.Int("runes", len(current)),
			)
			return t.floor(res, prompt)
		}

		overflow := length - budget
		chunkSize := len(current) - overflow*t.charsPerToken
		if chunkSize < t.minChunkSize {
			return t.floor(res, prompt)
		}

		candidate, err := t.firstChunk(text, chunkSize)
		if err != nil {
			return Result{}, err
		}

		next := []rune(candidate)
		switch {
		case len(next) == 0:
			// Nothing usable came back from the splitter.
			return t.floor(res, prompt)
		case len(next) >= len(current), len(next) < t.minChunkSize:
			// The splitter made no progress, or its first chunk undershoots
			// the floor; cut exactly at the estimate, which is never below it.
			res.HardCut = true
			next = current[:chunkSize]
		}
		res.Iterations++

		t.log.Debug("trim: reduced prompt",
			slog.Int("iteration", res.Iterations),
			slog.Int("tokens", length),
			slog.Int("budget", budget),
			slog.Int("chunk_size", chunkSize),
			slog.Int("runes", len(next)),
			slog.Bool("hard_cut", res.HardCut),
		)
		current = next
	}
}

// firstChunk returns the first chunk the splitter produces for text, or ""
// when it produces none.
func (t *Trimmer) firstChunk(text string, chunkSize int) (string, error) {
	s, err := t.newSplitter(chunkSize, 0)
	if err != nil {
		return "", fmt.Errorf("trim: new splitter: %w", err)
	}
	chunks, err := s.SplitText(text)
	if err != nil {
		return "", fmt.Errorf("trim: split: %w", err)
	}
	if len(chunks) == 0 {
		return "", nil
	}
	return chunks[0], nil
}

// floor ends the trim with the first minChunkSize runes of the original
// prompt, so a result is never shorter than min(minChunkSize, len(original)).
func (t *Trimmer) floor(res Result, original string) (Result, error) {
	runes := []rune(original)
	if len(runes) > t.minChunkSize {
		runes = runes[:t.minChunkSize]
		res.HardCut = true
		res.Iterations++
	}
	text := string(runes)
	length, err := t.counter.Count(text)
	if err != nil {
		return Result{}, fmt.Errorf("trim: count tokens: %w", err)
	}
	return t.finish(res, original, text, length), nil
}

// finish records the final text and its token count.
func (t *Trimmer) finish(res Result, original, text string, tokens int) Result {
	res.Prompt = text
	res.TokensAfter = tokens
	res.Trimmed = text != original
	return res
}

// iterationCap bounds the loop for a prompt of n runes.
func (t *Trimmer) iterationCap(n int) int {
	if t.maxIterations > 0 {
		return t.maxIterations
	}
	return n/t.minChunkSize + iterationSlack
}

// Trim trims prompt with the default tokenizer and splitter.
func Trim(prompt string, budget int) (string, error) {
	counter, err := tokenizer.Default()
	if err != nil {
		return "", fmt.Errorf("trim: %w", err)
	}
	t, err := New(counter)
	if err != nil {
		return "", err
	}
	return t.Trim(prompt, budget)
}
