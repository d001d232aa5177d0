package server

import (
	"streamlens/internal/models"
	"streamlens/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateLinkRequest represents the request body for linking a session
type CreateLinkRequest struct {
	SessionID uint `json:"session_id"`
}

// CreateLink associates a commerce session with the capture and runs the
// comment parse pass against the session's products.
func (s *Server) CreateLink(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req CreateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.SessionID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("session_id is required"))
	}

	result, err := s.linkService.Link(c.Context(), service.LinkInput{
		StreamID:  id,
		SessionID: req.SessionID,
		LinkedBy:  models.LinkedByManual,
	})
	if err != nil {
		return respondError(c, err)
	}

	status := fiber.StatusOK
	if result.Outcome == service.LinkCreated {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(result)
}

// DeleteLink removes the association and clears the parse results that
// pointed into the unlinked session.
func (s *Server) DeleteLink(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	sessionID, err := s.parseID(c, "sessionId")
	if err != nil {
		return nil
	}

	cleared, err := s.linkService.Unlink(c.Context(), id, sessionID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"cleared_comments": cleared})
}

// AutoLink applies the temporal heuristic to pick a session for the capture.
// The auto_link flag can turn the heuristic off without redeploying; manual
// linking stays available.
func (s *Server) AutoLink(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	operatorID, _ := c.Locals("operatorID").(uint)
	if s.featureFlags.Disabled("auto_link", operatorID) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewFeatureDisabledError("auto link"))
	}

	result, err := s.linkService.AutoLink(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	status := fiber.StatusOK
	if result.Outcome == service.LinkCreated {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(result)
}

// GetLinks lists the capture's session associations.
func (s *Server) GetLinks(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	links, err := s.linkService.GetLinks(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"links": links})
}
