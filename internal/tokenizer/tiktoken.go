package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// tiktokenCounter counts tokens with ranks fetched by tiktoken-go on first
// use. The ranks are cached under TIKTOKEN_CACHE_DIR when it is set.
type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// newTiktoken loads encoding, downloading its ranks if they are not cached.
func newTiktoken(encoding string) (*tiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: load tiktoken encoding %s: %w", encoding, err)
	}
	return &tiktokenCounter{enc: enc}, nil
}

// Count returns the number of token ids text encodes to. Special tokens are
// encoded as plain text.
func (c *tiktokenCounter) Count(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return len(c.enc.Encode(text, nil, nil)), nil
}
