package server

import (
	"context"
	"encoding/json"
	"log"
	"strconv"

	"streamlens/internal/ingest"
	"streamlens/internal/models"
	"streamlens/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// IngestEventsRequest represents a batch of pushed feed events
type IngestEventsRequest struct {
	Events []ingest.Event `json:"events"`
}

// IngestEvents accepts a batch of events from a relay that pushes over HTTP.
// Accepted means buffered, not stored; full-buffer drops are reported so the
// relay can slow down.
func (s *Server) IngestEvents(c *fiber.Ctx) error {
	var req IngestEventsRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if len(req.Events) == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("events is required"))
	}

	accepted := 0
	dropped := 0
	for _, event := range req.Events {
		if s.ingestHub.Enqueue(event) {
			accepted++
		} else {
			dropped++
		}
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"accepted": accepted,
		"dropped":  dropped,
	})
}

// IngestWebSocketHandler accepts a websocket push feed: one JSON event
// envelope per text message.
func (s *Server) IngestWebSocketHandler() fiber.Handler {
	wsLog := observability.NewWSLogger("ingest")
	return websocket.New(func(conn *websocket.Conn) {
		ctx := context.Background()

		operatorIDVal := conn.Locals("operatorID")
		if operatorIDVal == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		clientID := conn.RemoteAddr().String()
		wsLog.LogConnect(ctx, clientID)
		defer wsLog.LogDisconnect(ctx, clientID, "connection closed")
		defer func() { _ = conn.Close() }()

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.LogError(ctx, clientID, err, "read")
				}
				return
			}

			var event ingest.Event
			if err := json.Unmarshal(message, &event); err != nil {
				wsLog.LogError(ctx, clientID, err, "decode")
				continue
			}
			if !s.ingestHub.Enqueue(event) {
				// Tell the relay the buffer is full so it can back off.
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"dropped","reason":"buffer_full"}`))
			}
		}
	})
}

// ReportWebSocketHandler streams published reports to dashboard clients.
// An optional stream_id query parameter narrows delivery to one capture.
func (s *Server) ReportWebSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		operatorIDVal := conn.Locals("operatorID")
		if operatorIDVal == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}
		operatorID := operatorIDVal.(uint)

		var streamFilter uint
		if raw := conn.Query("stream_id"); raw != "" {
			if parsed, err := strconv.ParseUint(raw, 10, 32); err == nil {
				streamFilter = uint(parsed)
			}
		}

		client, err := s.reportHub.Register(operatorID, streamFilter, conn)
		if err != nil {
			log.Printf("WebSocket Reports: failed to register operator %d: %v", operatorID, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}
