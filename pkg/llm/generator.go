// Package llm provides the text-generation provider abstraction used by the
// RAG pipeline. Providers are black boxes: given a system and a user prompt
// they return generated text, and may fail transiently.
package llm

import "context"

const (
	// DefaultMaxTokens bounds the generated answer length.
	DefaultMaxTokens = 512

	// DefaultTemperature keeps answers stable and factual.
	DefaultTemperature = 0.2
)

// GenerateOptions carries per-call generation parameters.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// WithDefaults fills in zero-valued options.
func (o GenerateOptions) WithDefaults() GenerateOptions {
	if o.MaxTokens == 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Temperature == 0 {
		o.Temperature = DefaultTemperature
	}
	return o
}

// Generator produces text from a system and a user prompt.
type Generator interface {
	// Generate returns the generated text. Transport failures surface as
	// errors; callers decide the retry policy.
	Generate(ctx context.Context, systemPrompt, userPrompt string, opts GenerateOptions) (string, error)

	// Model returns the generation model identifier.
	Model() string

	// Close releases any resources held by the generator.
	Close() error
}

// ErrorResponse is the JSON error shape shared by the HTTP layer.
type ErrorResponse struct {
	Error string `json:"error"`
}
