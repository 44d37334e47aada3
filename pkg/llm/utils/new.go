// Package llmutils is the generation provider utility package
package llmutils

import (
	"fmt"

	"github.com/tenglaafi/tenglaafi/pkg/llm"
	"github.com/tenglaafi/tenglaafi/pkg/llm/provider/huggingface"
	"github.com/tenglaafi/tenglaafi/pkg/llm/provider/ollama"
)

type NewGeneratorOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	Token        string
}

func NewGenerator(o *NewGeneratorOpts) (llm.Generator, error) {
	switch o.ProviderType {
	case "huggingface":
		return huggingface.NewGenerator(huggingface.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
			Token:   o.Token,
		})
	case "ollama":
		return ollama.NewGenerator(ollama.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", o.ProviderType)
	}
}
