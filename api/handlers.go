package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tenglaafi/tenglaafi/pkg/llm"
	"github.com/tenglaafi/tenglaafi/pkg/rag"
)

const (
	// minQuestionLength is the minimum accepted question length in runes.
	minQuestionLength = 10

	// maxTopK caps the per-request retrieval depth.
	maxTopK = 10

	// maxBatchQuestions caps the number of questions per batch request.
	maxBatchQuestions = 20
)

// QueryRequest is the payload for POST /query.
type QueryRequest struct {
	Question      string `json:"question"`
	TopK          int    `json:"top_k"`
	ReturnSources *bool  `json:"return_sources"`
	UseCache      *bool  `json:"use_cache"`
}

// QueryResponse is the payload returned by POST /query.
type QueryResponse struct {
	Answer           string             `json:"answer"`
	Sources          []rag.RetrievedDoc `json:"sources,omitempty"`
	ProcessingTimeMs int64              `json:"processing_time_ms"`
}

// BatchQueryRequest is the payload for POST /query/batch.
type BatchQueryRequest struct {
	Questions     []string `json:"questions"`
	TopK          int      `json:"top_k"`
	ReturnSources *bool    `json:"return_sources"`
}

// BatchQueryResponse is the payload returned by POST /query/batch.
type BatchQueryResponse struct {
	Results []rag.BatchResult `json:"results"`
	Count   int               `json:"count"`
}

// SuggestionsResponse is the payload returned by GET /suggestions.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

// handleHealth reports service liveness.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "OK",
		"message": "TengLaafi API est opérationnelle.",
	})
}

// handleQuery answers a single question through the pipeline.
func (s *Server) handleQuery(c *fiber.Ctx) error {
	var req QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "corps de requête invalide"})
	}

	question := strings.TrimSpace(req.Question)
	if len([]rune(question)) < minQuestionLength {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "La question est trop courte."})
	}

	opts := rag.QueryOptions{
		K:             clampTopK(req.TopK),
		ReturnSources: boolOr(req.ReturnSources, true),
		UseCache:      boolOr(req.UseCache, true),
	}

	started := time.Now()
	answer, sources, err := s.pipeline.Query(c.Context(), question, opts)
	if err != nil {
		s.logger.Error("query failed",
			zap.String("question", question),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(QueryResponse{
		Answer:           answer,
		Sources:          sources,
		ProcessingTimeMs: time.Since(started).Milliseconds(),
	})
}

// handleBatchQuery answers several questions in one request. Individual
// failures are reported inline per question.
func (s *Server) handleBatchQuery(c *fiber.Ctx) error {
	var req BatchQueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "corps de requête invalide"})
	}

	if len(req.Questions) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "aucune question fournie"})
	}
	if len(req.Questions) > maxBatchQuestions {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "trop de questions dans le lot"})
	}

	opts := rag.QueryOptions{
		K:             clampTopK(req.TopK),
		ReturnSources: boolOr(req.ReturnSources, true),
		UseCache:      true,
	}

	results := s.pipeline.BatchQuery(c.Context(), req.Questions, opts)

	return c.JSON(BatchQueryResponse{
		Results: results,
		Count:   len(results),
	})
}

// handleSuggestions returns follow-up topics near the given question.
func (s *Server) handleSuggestions(c *fiber.Ctx) error {
	question := strings.TrimSpace(c.Query("question"))
	if question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "paramètre question requis"})
	}

	suggestions, err := s.pipeline.SimilarQuestions(c.Context(), question, clampTopK(c.QueryInt("k")))
	if err != nil {
		s.logger.Error("suggestions failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: err.Error()})
	}

	return c.JSON(SuggestionsResponse{Suggestions: suggestions})
}

// handleStats reports pipeline statistics.
func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.pipeline.Stats())
}

func clampTopK(k int) int {
	if k <= 0 {
		return 0
	}
	if k > maxTopK {
		return maxTopK
	}
	return k
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
