package notifications

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"streamlens/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per operator
	maxConnsPerOperator = 8
	// Max total connections
	maxTotalConns = 2000
)

// ReportHub fans report and lifecycle payloads out to connected dashboard
// websockets. Clients may watch a single stream or everything.
type ReportHub struct {
	mu         sync.RWMutex
	conns      map[*Client]struct{}
	perOp      map[uint]int
	totalConns int
}

func NewReportHub() *ReportHub {
	return &ReportHub{
		conns: make(map[*Client]struct{}),
		perOp: make(map[uint]int),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *ReportHub) Name() string { return "report hub" }

// Register a connection for an operator. streamFilter zero subscribes to
// every stream's reports.
func (h *ReportHub) Register(operatorID, streamFilter uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalConns >= maxTotalConns {
		return nil, errors.New("server connection limit reached")
	}
	if h.perOp[operatorID] >= maxConnsPerOperator {
		return nil, errors.New("operator connection limit reached")
	}

	client := NewClient(h, conn, operatorID, streamFilter)
	h.conns[client] = struct{}{}
	h.perOp[operatorID]++
	h.totalConns++
	observability.WebSocketConnectionsTotal.Inc()

	return client, nil
}

func (h *ReportHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[client]; !ok {
		return
	}
	delete(h.conns, client)
	h.totalConns--
	observability.WebSocketConnectionsTotal.Dec()

	h.perOp[client.OperatorID]--
	if h.perOp[client.OperatorID] <= 0 {
		delete(h.perOp, client.OperatorID)
	}
}

// Broadcast sends the payload to every client watching streamID.
func (h *ReportHub) Broadcast(streamID uint, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.conns {
		if client.StreamFilter == 0 || client.StreamFilter == streamID {
			client.TrySend(payload)
		}
	}
}

// ClientCount reports the number of connected dashboard clients.
func (h *ReportHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// StartWiring connects the Notifier to this hub: incoming Redis messages
// are routed to the clients watching the channel's stream.
func (h *ReportHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartReportSubscriber(ctx, func(channel, payload string) {
		var streamID uint
		switch {
		case strings.HasPrefix(channel, "reports:stream:"):
			if _, err := fmt.Sscanf(channel, "reports:stream:%d", &streamID); err != nil {
				log.Printf("invalid report channel: %s", channel)
				return
			}
		case strings.HasPrefix(channel, "lifecycle:stream:"):
			if _, err := fmt.Sscanf(channel, "lifecycle:stream:%d", &streamID); err != nil {
				log.Printf("invalid lifecycle channel: %s", channel)
				return
			}
		default:
			log.Printf("invalid notification channel: %s", channel)
			return
		}
		h.Broadcast(streamID, []byte(payload))
	})
}

// Shutdown gracefully closes all websocket connections
func (h *ReportHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.conns {
		if client.Conn == nil {
			continue
		}
		if err := client.Conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
			log.Printf("failed to write close message for operator %d: %v", client.OperatorID, err)
		}
		if err := client.Conn.Close(); err != nil {
			log.Printf("failed to close websocket for operator %d: %v", client.OperatorID, err)
		}
	}
	h.conns = make(map[*Client]struct{})
	h.perOp = make(map[uint]int)
	h.totalConns = 0

	return nil
}
