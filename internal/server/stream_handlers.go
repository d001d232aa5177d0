package server

import (
	"encoding/json"
	"log/slog"
	"time"

	"streamlens/internal/models"
	"streamlens/internal/service"

	"github.com/gofiber/fiber/v2"
)

// StartCaptureRequest represents the request body for starting a capture
type StartCaptureRequest struct {
	RoomID   string `json:"room_id"`
	UniqueID string `json:"unique_id"`
}

// MergeRequest represents the request body for merging two captures
type MergeRequest struct {
	SourceID uint `json:"source_id"`
}

// publishLifecycle announces a capture transition on the lifecycle channel.
// Best effort; dashboards resync from the API on reconnect.
func (s *Server) publishLifecycle(c *fiber.Ctx, stream *models.Stream, event string) {
	if s.notifier == nil {
		return
	}
	payload, err := json.Marshal(fiber.Map{
		"event":     event,
		"stream_id": stream.ID,
		"room_id":   stream.RoomID,
		"status":    stream.Status,
		"at":        time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if err := s.notifier.PublishLifecycle(c.Context(), stream.ID, payload); err != nil {
		slog.WarnContext(c.Context(), "lifecycle publish failed",
			"stream_id", stream.ID, "event", event, "error", err)
	}
}

// StartCapture begins capturing a room's broadcast. Starting a room that is
// already being captured returns the running capture with 200 instead of 201.
func (s *Server) StartCapture(c *fiber.Ctx) error {
	var req StartCaptureRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	stream, created, err := s.captureService.StartCapture(c.Context(), service.StartCaptureInput{
		RoomID:   req.RoomID,
		UniqueID: req.UniqueID,
	})
	if err != nil {
		return respondError(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
		s.publishLifecycle(c, stream, "capture_started")
	}
	return c.Status(status).JSON(fiber.Map{
		"stream":  stream,
		"created": created,
	})
}

// StopCapture marks the capture ended. Stopping an already-terminal capture
// succeeds with applied=false.
func (s *Server) StopCapture(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	stream, applied, err := s.captureService.StopCapture(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	if applied {
		s.ingestHub.InvalidateRoom(stream.RoomID)
		s.publishLifecycle(c, stream, "capture_ended")
	}

	return c.JSON(fiber.Map{
		"stream":  stream,
		"applied": applied,
	})
}

// FailCapture marks the capture failed.
func (s *Server) FailCapture(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	stream, applied, err := s.captureService.FailCapture(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	if applied {
		s.ingestHub.InvalidateRoom(stream.RoomID)
		s.publishLifecycle(c, stream, "capture_failed")
	}

	return c.JSON(fiber.Map{
		"stream":  stream,
		"applied": applied,
	})
}

// GetStreams lists captures, newest first, optionally filtered by status.
func (s *Server) GetStreams(c *fiber.Ctx) error {
	status := models.StreamStatus(c.Query("status", ""))
	page := parsePagination(c, 20)

	streams, total, err := s.captureService.ListStreams(c.Context(), status, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"streams": streams,
		"total":   total,
		"limit":   page.Limit,
		"offset":  page.Offset,
	})
}

// GetStream returns a single capture by ID
func (s *Server) GetStream(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	stream, err := s.captureService.GetStream(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(stream)
}

// GetStreamComments returns the capture's comments, newest first, paginated.
func (s *Server) GetStreamComments(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)

	comments, total, err := s.captureService.GetComments(c.Context(), id, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"comments": comments,
		"total":    total,
		"limit":    page.Limit,
		"offset":   page.Offset,
	})
}

// GetStreamStats returns the capture's metric samples in chronological order.
func (s *Server) GetStreamStats(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	stats, err := s.captureService.GetStats(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"stats": stats})
}

// MergeStreams folds the source capture into this one.
func (s *Server) MergeStreams(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req MergeRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.SourceID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("source_id is required"))
	}

	merged, err := s.captureService.Merge(c.Context(), service.MergeInput{
		TargetID: id,
		SourceID: req.SourceID,
	})
	if err != nil {
		return respondError(c, err)
	}

	// The room may be cached against the now-deleted source stream.
	s.ingestHub.InvalidateRoom(merged.RoomID)

	return c.JSON(merged)
}

// DeleteStream removes a capture and everything hanging off it.
func (s *Server) DeleteStream(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	stream, err := s.captureService.GetStream(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	if err := s.captureService.DeleteStream(c.Context(), id); err != nil {
		return respondError(c, err)
	}
	s.ingestHub.InvalidateRoom(stream.RoomID)

	return c.SendStatus(fiber.StatusNoContent)
}
