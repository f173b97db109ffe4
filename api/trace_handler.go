package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atelieredu/traza/pkg/cognitive"
	"github.com/atelieredu/traza/pkg/storage"
)

// handleListTraces returns a session's traces, oldest first, filtered by
// level, interaction_type, and cognitive_state query parameters and
// paginated with limit/offset.
func (s *Server) handleListTraces(c *fiber.Ctx) error {
	query := storage.TraceQuery{
		Level:           cognitive.TraceLevel(c.Query("level")),
		InteractionType: cognitive.InteractionType(c.Query("interaction_type")),
		CognitiveState:  cognitive.CognitiveState(c.Query("cognitive_state")),
		Limit:           c.QueryInt("limit"),
		Offset:          c.QueryInt("offset"),
	}

	traces, err := s.gw.ListTraces(c.Context(), c.Params("id"), query)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(map[string]any{
		"count":  len(traces),
		"traces": traces,
	})
}

// handleTraceSequence returns the session's full cognitive sequence
// analysis: path, involvement evolution, dependency score, and strategy
// changes.
func (s *Server) handleTraceSequence(c *fiber.Ctx) error {
	report, err := s.gw.GetTraceSequence(c.Context(), c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(report)
}
