package trim

import (
	"fmt"
	"log/slog"
)

// Option configures a Trimmer.
type Option func(*Trimmer) error

// WithSplitterFactory replaces the default recursive splitter.
func WithSplitterFactory(f SplitterFactory) Option {
	return func(t *Trimmer) error {
		if f == nil {
			return fmt.Errorf("trim: splitter factory must not be nil")
		}
		t.newSplitter = f
		return nil
	}
}

// WithMinChunkSize sets the hard-cut floor in runes.
func WithMinChunkSize(n int) Option {
	return func(t *Trimmer) error {
		if n <= 0 {
			return fmt.Errorf("trim: min chunk size must be positive, got %d", n)
		}
		t.minChunkSize = n
		return nil
	}
}

// WithCharsPerToken sets the overflow-to-characters ratio. Values below 1
// would let the estimate stall at the current length.
func WithCharsPerToken(n int) Option {
	return func(t *Trimmer) error {
		if n < 1 {
			return fmt.Errorf("trim: chars per token must be at least 1, got %d", n)
		}
		t.charsPerToken = n
		return nil
	}
}

// WithMaxIterations overrides the length-derived iteration cap.
func WithMaxIterations(n int) Option {
	return func(t *Trimmer) error {
		if n <= 0 {
			return fmt.Errorf("trim: max iterations must be positive, got %d", n)
		}
		t.maxIterations = n
		return nil
	}
}

// WithLogger sets the logger used for per-iteration debug records.
func WithLogger(log *slog.Logger) Option {
	return func(t *Trimmer) error {
		if log != nil {
			t.log = log
		}
		return nil
	}
}
