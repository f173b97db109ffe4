package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/atelieredu/traza/pkg/export"
	"github.com/atelieredu/traza/pkg/gateway"
	"github.com/atelieredu/traza/pkg/llm"
	"github.com/atelieredu/traza/pkg/storage"
)

// ErrorResponse is the JSON body for every error status.
type ErrorResponse struct {
	Error string `json:"error"`

	// ValidationReport carries the privacy metrics when an export is
	// rejected, so researchers can see which thresholds failed.
	ValidationReport *export.ValidationReport `json:"validation_report,omitempty"`
}

// respondError translates a domain error kind into an HTTP status.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	var privacy export.PrivacyValidationError

	switch {
	case gateway.IsSessionNotFound(err),
		storage.IsNotFound(err),
		errors.Is(err, export.ErrNoData):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})

	case gateway.IsValidation(err), gateway.IsInactiveSession(err):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})

	case errors.As(err, &privacy):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Error:            privacy.Error(),
			ValidationReport: &privacy.Report,
		})

	case llm.IsProviderTimeout(err):
		return c.Status(fiber.StatusGatewayTimeout).JSON(ErrorResponse{Error: err.Error()})

	case llm.IsProviderError(err):
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: err.Error()})
	}

	s.logger.Error("request failed", "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal server error"})
}
