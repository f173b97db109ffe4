package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atelieredu/traza/pkg/risk"
)

// ResolveRiskRequest marks a risk as reviewed.
type ResolveRiskRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) handleSessionRisks(c *fiber.Ctx) error {
	report, err := s.gw.GetRiskReport(c.Context(), c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(report)
}

func (s *Server) handleStudentRisks(c *fiber.Ctx) error {
	risks, err := s.gw.RisksByStudent(c.Context(), c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(map[string]any{
		"count": len(risks),
		"risks": risks,
	})
}

func (s *Server) handleResolveRisk(c *fiber.Ctx) error {
	var req ResolveRiskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	resolved, err := s.gw.ResolveRisk(c.Context(), c.Params("id"), req.Notes)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(resolved)
}

// handleRiskStats aggregates risk statistics for one student or one
// session, selected by query parameter.
func (s *Server) handleRiskStats(c *fiber.Ctx) error {
	ctx := c.Context()

	if studentID := c.Query("student_id"); studentID != "" {
		risks, err := s.gw.RisksByStudent(ctx, studentID)
		if err != nil {
			return s.respondError(c, err)
		}
		return c.JSON(risk.Aggregate(risks))
	}

	if sessionID := c.Query("session_id"); sessionID != "" {
		report, err := s.gw.GetRiskReport(ctx, sessionID)
		if err != nil {
			return s.respondError(c, err)
		}
		return c.JSON(report.Stats)
	}

	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "student_id or session_id query parameter required"})
}
