package splitter

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"
)

// Metadata keys set on every chunk produced by Transform.
const (
	// MetaChunkIndex is the zero-based position of the chunk within its source.
	MetaChunkIndex = "chunk_index"
	// MetaSourceID is the ID of the document the chunk was cut from.
	MetaSourceID = "source_id"
)

var _ document.Transformer = (*Recursive)(nil)

// Transform splits every source document into chunk documents. Chunk IDs are
// "<source id>#<index>"; source metadata is copied onto each chunk.
func (r *Recursive) Transform(ctx context.Context, src []*schema.Document, opts ...document.TransformerOption) ([]*schema.Document, error) {
	var out []*schema.Document
	for _, doc := range src {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("splitter: transform: %w", err)
		}
		if doc == nil {
			continue
		}
		chunks, err := r.chunks(ctx, doc.Content, opts...)
		if err != nil {
			return nil, fmt.Errorf("splitter: transform %s: %w", doc.ID, err)
		}
		for i, chunk := range chunks {
			meta := make(map[string]any, len(doc.MetaData)+2)
			for k, v := range doc.MetaData {
				meta[k] = v
			}
			meta[MetaChunkIndex] = i
			meta[MetaSourceID] = doc.ID

			out = append(out, &schema.Document{
				ID:       fmt.Sprintf("%s#%d", doc.ID, i),
				Content:  chunk,
				MetaData: meta,
			})
		}
	}
	return out, nil
}
