// Package huggingface implements pkg/llm's Generator on top of the Hugging
// Face chat-completions router.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tenglaafi/tenglaafi/pkg/llm"
)

const (
	// DefaultModel is the instruct model used when none is configured.
	DefaultModel = "mistralai/Mistral-7B-Instruct-v0.3"

	// DefaultBaseURL is the Hugging Face router root.
	DefaultBaseURL = "https://router.huggingface.co/v1"
)

// Generator wraps the Hugging Face chat-completions API.
type Generator struct {
	baseURL    string
	model      string
	token      string
	httpClient *http.Client
}

// Config holds configuration for the Hugging Face generator.
type Config struct {
	// BaseURL overrides the router root. Defaults to DefaultBaseURL.
	BaseURL string

	// Model is the chat model id. Defaults to DefaultModel.
	Model string

	// Token is the Hugging Face API token. Required.
	Token string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewGenerator creates a new Hugging Face generator. A missing token is a
// configuration error: the caller must not proceed without one.
func NewGenerator(cfg Config) (*Generator, error) {
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

	return &Generator{
		baseURL: baseURL,
		model:   model,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// Generate sends a chat completion request and returns the generated text.
func (g *Generator) Generate(ctx context.Context, systemPrompt, userPrompt string, opts llm.GenerateOptions) (string, error) {
	opts = opts.WithDefaults()

	reqBody := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("hugging face returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("hugging face returned no choices")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// Model returns the generation model identifier.
func (g *Generator) Model() string {
	return g.model
}

// Close releases resources held by the generator.
func (g *Generator) Close() error {
	return nil
}

var _ llm.Generator = (*Generator)(nil)
