// Package huggingface implements pkg/embeddings' Embedder on top of the
// Hugging Face Inference API feature-extraction pipeline.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tenglaafi/tenglaafi/pkg/embeddings"
	"github.com/tenglaafi/tenglaafi/pkg/vector"
)

const (
	// DefaultModel is the sentence-transformers model used when none is configured.
	DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

	// DefaultBaseURL is the Hugging Face Inference API root.
	DefaultBaseURL = "https://api-inference.huggingface.co"

	// DefaultDimensions matches all-MiniLM-L6-v2 output.
	DefaultDimensions = 384
)

// Embedder wraps the Hugging Face feature-extraction endpoint.
type Embedder struct {
	baseURL    string
	model      string
	token      string
	dimensions int
	httpClient *http.Client
}

// EmbedderConfig holds configuration for the Hugging Face embedder.
type EmbedderConfig struct {
	// BaseURL overrides the inference API root. Defaults to DefaultBaseURL.
	BaseURL string

	// Model is the sentence-transformers model id. Defaults to DefaultModel.
	Model string

	// Token is the Hugging Face API token. Required.
	Token string

	// Dimensions is the embedding dimension the model produces.
	// Defaults to DefaultDimensions if zero.
	Dimensions int
}

// featureExtractionRequest is the request body for the feature-extraction pipeline.
type featureExtractionRequest struct {
	Inputs  []string       `json:"inputs"`
	Options map[string]any `json:"options,omitempty"`
}

// NewEmbedder creates a new Hugging Face embedder. A missing token is a
// configuration error: the caller must not proceed without one.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("hugging face token is required (set HF_TOKEN)")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = DefaultDimensions
	}

	return &Embedder{
		baseURL:    baseURL,
		model:      model,
		token:      cfg.Token,
		dimensions: dimensions,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// Embed converts a batch of texts into vector embeddings. Vectors are
// normalized to unit length before being returned.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := featureExtractionRequest{
		Inputs: texts,
		// Block until the model is loaded instead of returning a 503.
		Options: map[string]any{"wait_for_model": true},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", vector.ErrEmbedding, err)
	}

	url := fmt.Sprintf("%s/pipeline/feature-extraction/%s", e.baseURL, e.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", vector.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", vector.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: hugging face returned status %d: %s", vector.ErrEmbedding, resp.StatusCode, string(body))
	}

	var vecs [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vecs); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", vector.ErrEmbedding, err)
	}

	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", vector.ErrEmbedding, len(texts), len(vecs))
	}

	for i := range vecs {
		embeddings.Normalize(vecs[i])
	}

	return vecs, nil
}

// EmbedOne converts a single text into a vector embedding.
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", vector.ErrEmbedding)
	}
	return vecs[0], nil
}

// Dimensions returns the embedding vector dimension.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Model returns the embedding model identifier.
func (e *Embedder) Model() string {
	return e.model
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
