// Package splitter implements boundary-aware text splitting on top of the
// eino recursive splitter. Text is cut at paragraph breaks first, then line
// breaks, then sentence ends, then spaces, and only falls back to raw
// characters when a piece still does not fit the chunk size.
package splitter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"
)

// DefaultSeparators are tried in order: paragraph, line, sentence, word,
// character. Each separator stays attached to the text before it, so a
// chunk cut at a sentence boundary ends with its full stop.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", " ", ""}

// ErrInvalidChunkSize is returned by New when the size/overlap pair cannot
// produce chunks.
var ErrInvalidChunkSize = errors.New("splitter: invalid chunk size")

// Config holds the splitting parameters.
type Config struct {
	// ChunkSize is the target maximum chunk length, in LengthFunc units.
	ChunkSize int

	// ChunkOverlap is how much of the previous chunk's tail is repeated at
	// the start of the next one. Must be smaller than ChunkSize.
	ChunkOverlap int

	// Separators overrides DefaultSeparators. The last entry should be ""
	// so oversized pieces can always be cut.
	Separators []string

	// LengthFunc measures text. Defaults to the rune count.
	LengthFunc func(string) int
}

// Recursive splits text by trying each separator in turn. Chunks are
// whitespace-trimmed and never empty. A Recursive is immutable and safe for
// concurrent use.
type Recursive struct {
	chunkSize    int
	chunkOverlap int
	inner        document.Transformer
}

// New validates cfg and returns a Recursive splitter.
func New(cfg Config) (*Recursive, error) {
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunkSize, cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be in [0, %d)", ErrInvalidChunkSize, cfg.ChunkOverlap, cfg.ChunkSize)
	}

	seps := cfg.Separators
	if len(seps) == 0 {
		seps = DefaultSeparators
	}
	length := cfg.LengthFunc
	if length == nil {
		length = utf8.RuneCountInString
	}

	inner, err := recursive.NewSplitter(context.Background(), &recursive.Config{
		ChunkSize:   cfg.ChunkSize,
		OverlapSize: cfg.ChunkOverlap,
		Separators:  append([]string(nil), seps...),
		LenFunc:     length,
		KeepType:    recursive.KeepTypeEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("splitter: new recursive splitter: %w", err)
	}

	return &Recursive{
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		inner:        inner,
	}, nil
}

// ChunkSize returns the configured chunk size.
func (r *Recursive) ChunkSize() int { return r.chunkSize }

// ChunkOverlap returns the configured chunk overlap.
func (r *Recursive) ChunkOverlap() int { return r.chunkOverlap }

// SplitText returns the ordered chunks of text. Whitespace-only input yields
// no chunks. A chunk can exceed ChunkSize only when the separator list has
// no "" fallback.
func (r *Recursive) SplitText(text string) ([]string, error) {
	return r.chunks(context.Background(), text)
}

// chunks runs the recursive splitter over text and drops the whitespace it
// leaves around chunk boundaries.
func (r *Recursive) chunks(ctx context.Context, text string, opts ...document.TransformerOption) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	docs, err := r.inner.Transform(ctx, []*schema.Document{{Content: text}}, opts...)
	if err != nil {
		return nil, fmt.Errorf("splitter: split: %w", err)
	}
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		if d == nil {
			continue
		}
		if c := strings.TrimSpace(d.Content); c != "" {
			out = append(out, c)
		}
	}
	return out, nil
}
