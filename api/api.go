package api

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tenglaafi/tenglaafi/pkg/rag"
)

// Server is the HTTP API server fronting the RAG pipeline
type Server struct {
	config   Config
	pipeline *rag.Pipeline
	logger   *zap.Logger
	app      *fiber.App
}

// NewServer creates a new API server.
// The pipeline is injected to allow sharing with other components
// (e.g., the MCP server when both run in one process).
func NewServer(config Config, pipeline *rag.Pipeline, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   config,
		pipeline: pipeline,
		logger:   logger,
		app:      app,
	}

	app.Get("/health", s.handleHealth)
	app.Head("/health", s.handleHealth)
	app.Post("/query", s.handleQuery)
	app.Post("/query/batch", s.handleBatchQuery)
	app.Get("/suggestions", s.handleSuggestions)
	app.Get("/stats", s.handleStats)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
