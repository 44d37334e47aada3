package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/tenglaafi/tenglaafi/pkg/rag"
)

var (
	askToolName    = "ask"
	askDescription = "Ask a question about tropical diseases and African medicinal plants. Answers are generated from a curated medical corpus and cite their sources."

	suggestToolName    = "suggest"
	suggestDescription = "Suggest related topics from the medical corpus for a given question."
)

// AskInput represents the input arguments for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the medical question to answer"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of documents to retrieve (default: 3)"`
}

// AskSource is a single cited document.
type AskSource struct {
	ID         int     `json:"id"`
	Title      string  `json:"title"`
	URL        string  `json:"url,omitempty"`
	Similarity float32 `json:"similarity"`
}

// AskOutput represents the output of the ask tool.
type AskOutput struct {
	Question string      `json:"question"`
	Answer   string      `json:"answer"`
	Sources  []AskSource `json:"sources"`
}

// SuggestInput represents the input arguments for the suggest tool.
type SuggestInput struct {
	Question string `json:"question" jsonschema:"the question to find related topics for"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of topics to return (default: 5)"`
}

// SuggestOutput represents the output of the suggest tool.
type SuggestOutput struct {
	Question    string   `json:"question"`
	Suggestions []string `json:"suggestions"`
	Count       int      `json:"count"`
}

// handleAsk processes an ask request.
func (s *Server) handleAsk(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	logger := s.config.Logger

	logger.Debug("MCP ask request",
		zap.String("question", input.Question),
		zap.Int("topK", input.TopK),
	)

	answer, sources, err := s.config.Pipeline.Query(ctx, input.Question, rag.QueryOptions{
		K:             input.TopK,
		ReturnSources: true,
		UseCache:      true,
	})
	if err != nil {
		logger.Error("failed to answer question", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to answer question: %v", err)},
			},
		}, AskOutput{}, nil
	}

	askSources := make([]AskSource, len(sources))
	for i, src := range sources {
		askSources[i] = AskSource{
			ID:         src.ID,
			Title:      src.Title,
			URL:        src.URL,
			Similarity: src.Similarity,
		}
	}

	output := AskOutput{
		Question: input.Question,
		Answer:   answer,
		Sources:  askSources,
	}

	return toolResult(logger, output)
}

// handleSuggest processes a suggest request.
func (s *Server) handleSuggest(ctx context.Context, req *mcp.CallToolRequest, input SuggestInput) (*mcp.CallToolResult, SuggestOutput, error) {
	logger := s.config.Logger

	suggestions, err := s.config.Pipeline.SimilarQuestions(ctx, input.Question, input.TopK)
	if err != nil {
		logger.Error("failed to build suggestions", zap.Error(err))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to build suggestions: %v", err)},
			},
		}, SuggestOutput{}, nil
	}

	output := SuggestOutput{
		Question:    input.Question,
		Suggestions: suggestions,
		Count:       len(suggestions),
	}

	return toolResult(logger, output)
}

// toolResult serializes the structured output as JSON for the text field.
// Per MCP spec: tools returning structured content should also return
// serialized JSON in a TextContent block for backwards compatibility.
func toolResult[T any](logger *zap.Logger, output T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal tool output", zap.Error(err))
		var zero T
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize results: %v", err)},
			},
		}, zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}
