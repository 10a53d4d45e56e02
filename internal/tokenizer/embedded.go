package tokenizer

import (
	"fmt"

	bpe "github.com/tiktoken-go/tokenizer"
)

// embeddedCounter counts tokens with tables compiled into the binary.
type embeddedCounter struct {
	// codec is read-only after construction.
	codec bpe.Codec
}

// newEmbedded loads the compiled-in codec for encoding.
func newEmbedded(encoding string) (*embeddedCounter, error) {
	codec, err := bpe.Get(bpe.Encoding(encoding))
	if err != nil {
		return nil, fmt.Errorf("tokenizer: load embedded encoding %s: %w", encoding, err)
	}
	return &embeddedCounter{codec: codec}, nil
}

// Count returns the number of token ids text encodes to.
func (c *embeddedCounter) Count(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	ids, _, err := c.codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("tokenizer: encode: %w", err)
	}
	return len(ids), nil
}
