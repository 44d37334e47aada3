// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"

	"github.com/tenglaafi/tenglaafi/pkg/embeddings"
	"github.com/tenglaafi/tenglaafi/pkg/embeddings/huggingface"
	"github.com/tenglaafi/tenglaafi/pkg/embeddings/ollama"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	Token        string
	Dimensions   int
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	case "huggingface":
		return huggingface.NewEmbedder(huggingface.EmbedderConfig{
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Token:      o.Token,
			Dimensions: o.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
