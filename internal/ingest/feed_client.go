package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"streamlens/internal/observability"

	"github.com/gorilla/websocket"
)

const (
	reconnectBase = time.Second
	reconnectCap  = 30 * time.Second
	feedReadLimit = 1 << 20
)

// Dialer abstracts the websocket dial so tests can inject a fake feed.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, error)
}

type gorillaDialer struct{}

func (gorillaDialer) DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, urlStr, requestHeader)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// FeedClient maintains the websocket connection to the upstream broadcast
// relay and pumps decoded events into the hub. The relay redelivers recent
// events after a reconnect; duplicates are absorbed downstream.
type FeedClient struct {
	url    string
	hub    *Hub
	dialer Dialer
	log    *observability.WSLogger
}

func NewFeedClient(url string, hub *Hub) *FeedClient {
	return &FeedClient{
		url:    url,
		hub:    hub,
		dialer: gorillaDialer{},
		log:    observability.NewWSLogger("feed"),
	}
}

// Run connects and reads until the context is cancelled, reconnecting with
// capped exponential backoff. A successful connection resets the backoff.
func (f *FeedClient) Run(ctx context.Context) {
	backoff := reconnectBase
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := f.dialer.DialContext(ctx, f.url, nil)
		if err != nil {
			f.log.LogError(ctx, f.url, err, "dial")
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		f.log.LogConnect(ctx, f.url)
		backoff = reconnectBase
		f.readLoop(ctx, conn)
		f.log.LogDisconnect(ctx, f.url, "read loop exited")

		if !sleepCtx(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff)
	}
}

func (f *FeedClient) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer func() { _ = conn.Close() }()
	conn.SetReadLimit(feedReadLimit)

	// Close on cancellation to unblock ReadMessage.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				f.log.LogError(ctx, f.url, err, "read")
			}
			return
		}

		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			f.log.LogError(ctx, f.url, err, "decode")
			continue
		}
		f.hub.Enqueue(event)
	}
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > reconnectCap {
		return reconnectCap
	}
	return next
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
