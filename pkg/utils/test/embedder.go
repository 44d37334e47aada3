package testutils

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/tenglaafi/tenglaafi/pkg/embeddings"
)

// MockEmbedder is a test embedder that returns deterministic embeddings
// derived from the input text. Identical texts always embed identically, so
// retrieval over a mock index is stable across runs.
type MockEmbedder struct {
	// Embeddings overrides the derived embedding for specific texts.
	Embeddings map[string][]float32

	// FailOn causes Embed to return an error when any input matches
	FailOn string

	// Calls counts Embed and EmbedOne invocations.
	Calls int

	Dim       int
	ModelName string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		Dim:        8,
		ModelName:  "mock-embedder",
	}
}

func (m *MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.Calls++

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if m.FailOn != "" && text == m.FailOn {
			return nil, fmt.Errorf("mock embedding failure for: %s", text)
		}
		out[i] = m.embed(text)
	}
	return out, nil
}

func (m *MockEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *MockEmbedder) Dimensions() int { return m.Dim }

func (m *MockEmbedder) Model() string { return m.ModelName }

func (m *MockEmbedder) Close() error { return nil }

func (m *MockEmbedder) embed(text string) []float32 {
	if emb, ok := m.Embeddings[text]; ok {
		return emb
	}

	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, m.Dim)
	for i := range vec {
		vec[i] = float32(sum[i%len(sum)]) / 255.0
	}
	return embeddings.Normalize(vec)
}
