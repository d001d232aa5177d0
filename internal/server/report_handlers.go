package server

import (
	"streamlens/internal/cache"
	"streamlens/internal/models"
	"streamlens/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetReport assembles the analytics report for a capture. Assembly is
// read-only; nothing is published or marked.
func (s *Server) GetReport(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	// A sent report was cached at publish time; serve it as-is.
	var cached models.StreamReport
	if hit, err := cache.GetJSON(c.Context(), cache.ReportKey(id), &cached); err == nil && hit {
		return c.JSON(&cached)
	}

	report, err := s.reportService.AssembleReport(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(report)
}

// SendReport assembles, publishes, and marks the report sent. A second send
// reports already_sent instead of publishing again.
func (s *Server) SendReport(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	report, outcome, err := s.reportService.SendReport(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	status := fiber.StatusOK
	if outcome == service.SendDelivered {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"outcome": outcome,
		"report":  report,
	})
}
