package embedding

import "context"

// Embedder maps text to a fixed-length vector. For a given model the same
// input always yields the same vector.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
