package api

import (
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/atelieredu/traza/pkg/config"
	"github.com/atelieredu/traza/pkg/export"
	"github.com/atelieredu/traza/pkg/gateway"
	"github.com/atelieredu/traza/pkg/logger"
)

// Server is the API server for recording and querying tutoring sessions.
type Server struct {
	config   Config
	gw       *gateway.Gateway
	exporter *export.Exporter
	logger   *slog.Logger
	app      *fiber.App

	// llmMu guards llmCfg, which admin PATCH requests mutate in place.
	llmMu  sync.RWMutex
	llmCfg config.LLMConfig
}

// NewServer creates a new API server. The gateway is injected to allow
// sharing with other components; the exporter may be nil when research
// export is not configured.
func NewServer(cfg Config, gw *gateway.Gateway, exporter *export.Exporter, llmCfg config.LLMConfig, log *slog.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:   cfg,
		gw:       gw,
		exporter: exporter,
		logger:   log,
		app:      app,
		llmCfg:   llmCfg,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")

	v1.Post("/sessions", s.handleCreateSession)
	v1.Get("/sessions/:id", s.handleGetSession)
	v1.Patch("/sessions/:id", s.handleUpdateSession)
	v1.Post("/sessions/:id/interactions", s.handleInteraction)
	v1.Get("/sessions/:id/traces", s.handleListTraces)
	v1.Get("/sessions/:id/trace-sequence", s.handleTraceSequence)
	v1.Get("/sessions/:id/risks", s.handleSessionRisks)
	v1.Get("/sessions/:id/evaluations", s.handleSessionEvaluations)

	v1.Get("/students/:id/sessions", s.handleStudentSessions)
	v1.Get("/students/:id/risks", s.handleStudentRisks)
	v1.Get("/students/:id/evaluations", s.handleStudentEvaluations)

	v1.Post("/risks/:id/resolve", s.handleResolveRisk)
	v1.Get("/risks/stats", s.handleRiskStats)

	v1.Get("/admin/llm/providers", s.handleListProviders)
	v1.Get("/admin/llm/providers/:name", s.handleGetProvider)
	v1.Patch("/admin/llm/providers/:name", s.handleUpdateProvider)

	v1.Post("/export/research", s.handleResearchExport)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}
