// Package embeddings
package embeddings

import (
	"context"
	"math"
)

// Embedder converts text into fixed-dimension, L2-normalized vectors.
type Embedder interface {
	// Embed converts a batch of texts into embeddings. The returned matrix
	// preserves input order: embeddings[i] corresponds to texts[i].
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedOne converts a single text into an embedding.
	EmbedOne(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector dimension.
	Dimensions() int

	// Model returns the embedding model identifier. Persisted next to the
	// index so a model change can be detected across runs.
	Model() string

	// Close releases any resources held by the embedder.
	Close() error
}

// Normalize scales v to unit length in place and returns it. Zero vectors
// are returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= norm
	}
	return v
}
