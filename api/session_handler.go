package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/atelieredu/traza/pkg/cognitive"
)

// CreateSessionRequest opens a new tutoring session.
type CreateSessionRequest struct {
	StudentID  string `json:"student_id"`
	ActivityID string `json:"activity_id"`
}

// UpdateSessionRequest changes a session's mode, status, or both. Empty
// fields are left untouched.
type UpdateSessionRequest struct {
	Mode   string `json:"mode,omitempty"`
	Status string `json:"status,omitempty"`
}

// InteractionRequest records one student prompt.
type InteractionRequest struct {
	Prompt string `json:"prompt"`

	// IntentHint optionally declares the student's intent
	// (e.g. "PLAN_APPROACH"); the classifier verifies it against the
	// prompt rather than trusting it.
	IntentHint string `json:"intent_hint,omitempty"`
}

func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	var req CreateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	session, err := s.gw.CreateSession(c.Context(), req.StudentID, req.ActivityID)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}

func (s *Server) handleGetSession(c *fiber.Ctx) error {
	session, err := s.gw.GetSession(c.Context(), c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(session)
}

// handleUpdateSession applies mode then status. When both are present and
// the status change fails, the mode change has already been applied.
func (s *Server) handleUpdateSession(c *fiber.Ctx) error {
	var req UpdateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.Mode == "" && req.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "nothing to update: provide mode or status"})
	}

	ctx := c.Context()
	id := c.Params("id")

	session, err := s.gw.GetSession(ctx, id)
	if err != nil {
		return s.respondError(c, err)
	}

	if req.Mode != "" {
		session, err = s.gw.SetMode(ctx, id, cognitive.AgentMode(req.Mode))
		if err != nil {
			return s.respondError(c, err)
		}
	}
	if req.Status != "" {
		session, err = s.gw.SetStatus(ctx, id, cognitive.SessionStatus(req.Status))
		if err != nil {
			return s.respondError(c, err)
		}
	}

	return c.JSON(session)
}

func (s *Server) handleInteraction(c *fiber.Ctx) error {
	var req InteractionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	result, err := s.gw.ProcessInteraction(c.Context(), c.Params("id"), req.Prompt, req.IntentHint)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(result)
}

func (s *Server) handleStudentSessions(c *fiber.Ctx) error {
	sessions, err := s.gw.SessionsByStudent(c.Context(), c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	})
}
