package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atelieredu/traza/pkg/export"
)

// handleResearchExport runs an anonymized research export. The body is an
// export.Request; a dataset failing privacy validation is rejected whole
// with the validation report attached.
func (s *Server) handleResearchExport(c *fiber.Ctx) error {
	if s.exporter == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "research export is not configured"})
	}

	var req export.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	result, err := s.exporter.Export(c.Context(), req)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(result)
}
