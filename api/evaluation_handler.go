package api

import (
	"github.com/gofiber/fiber/v2"
)

// handleSessionEvaluations returns a session's evaluations, most recent
// last. The latest entry is the session's current evaluation.
func (s *Server) handleSessionEvaluations(c *fiber.Ctx) error {
	evals, err := s.gw.EvaluationsBySession(c.Context(), c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(map[string]any{
		"count":       len(evals),
		"evaluations": evals,
	})
}

func (s *Server) handleStudentEvaluations(c *fiber.Ctx) error {
	evals, err := s.gw.EvaluationsByStudent(c.Context(), c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(map[string]any{
		"count":       len(evals),
		"evaluations": evals,
	})
}
