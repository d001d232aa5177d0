package ingest

import (
	"context"
	"sync"
	"time"

	"streamlens/internal/models"
	"streamlens/internal/observability"
	"streamlens/internal/repository"
)

// Hub is the bounded ingest buffer and its worker pool. Enqueue never
// blocks: when the buffer is full the event is dropped and counted, because
// a stalled ingest path must not back-pressure the feed connection.
type Hub struct {
	streamRepo  repository.StreamRepository
	commentRepo repository.CommentRepository
	statRepo    repository.StatRepository

	events  chan Event
	workers int

	// roomStreams caches room -> active stream ID. The database stays
	// authoritative; entries are dropped on any terminal transition.
	roomStreams sync.Map

	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex

	now func() time.Time
}

func NewHub(
	streamRepo repository.StreamRepository,
	commentRepo repository.CommentRepository,
	statRepo repository.StatRepository,
	buffer, workers int,
) *Hub {
	if buffer <= 0 {
		buffer = 4096
	}
	if workers <= 0 {
		workers = 4
	}
	return &Hub{
		streamRepo:  streamRepo,
		commentRepo: commentRepo,
		statRepo:    statRepo,
		events:      make(chan Event, buffer),
		workers:     workers,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Start launches the worker pool. Workers exit when the context is
// cancelled or the intake channel is closed by Shutdown.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return
	}
	h.started = true

	observability.LogAsyncOperationStart(ctx, "ingest_workers", map[string]interface{}{
		"workers": h.workers,
		"buffer":  cap(h.events),
	})

	for i := 0; i < h.workers; i++ {
		h.wg.Add(1)
		go h.worker(ctx)
	}
}

// InvalidateRoom drops the room's cached stream ID. The API layer calls this
// on operator-driven terminal transitions so later feed events re-resolve
// against the database instead of appending to a terminal stream.
func (h *Hub) InvalidateRoom(roomID string) {
	h.roomStreams.Delete(roomID)
}

// Enqueue offers an event to the buffer. Returns false when the event was
// dropped because the buffer is full.
func (h *Hub) Enqueue(event Event) bool {
	select {
	case h.events <- event:
		observability.RecordIngestEvent(string(event.Type))
		return true
	default:
		observability.RecordIngestDrop(string(event.Type))
		return false
	}
}

// Shutdown closes the intake and waits for workers to drain the buffer,
// giving up when the context expires.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return nil
	}
	h.started = false
	close(h.events)
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) worker(ctx context.Context) {
	defer h.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-h.events:
			if !ok {
				return
			}
			if err := h.process(ctx, event); err != nil {
				observability.LogAsyncOperationError(ctx, "ingest_event", err, map[string]interface{}{
					"event_type": string(event.Type),
					"room_id":    event.RoomID,
				})
			}
		}
	}
}

func (h *Hub) process(ctx context.Context, event Event) error {
	if event.RoomID == "" {
		return models.NewValidationError("event has no room_id")
	}

	if event.Type == EventLiveStatus {
		return h.handleStatus(ctx, event)
	}

	streamID, err := h.resolveStream(ctx, event)
	if err != nil {
		return err
	}

	switch event.Type {
	case EventComment:
		return h.handleComment(ctx, streamID, event)
	case EventStat:
		return h.handleStat(ctx, streamID, event)
	case EventGift:
		if event.Gift == nil {
			return models.NewValidationError("gift event has no payload")
		}
		return h.streamRepo.AddGiftValue(ctx, streamID, event.Gift.Value)
	case EventLike:
		if event.Like == nil {
			return models.NewValidationError("like event has no payload")
		}
		return h.streamRepo.RaiseTotalLikes(ctx, streamID, event.Like.Total)
	default:
		return models.NewValidationError("unknown event type: " + string(event.Type))
	}
}

// resolveStream maps a room to its active capture, creating one when none
// exists. Events arriving for a room mean it is broadcasting; a capture
// that restarts after a drop is folded back later by merge.
func (h *Hub) resolveStream(ctx context.Context, event Event) (uint, error) {
	if cached, ok := h.roomStreams.Load(event.RoomID); ok {
		return cached.(uint), nil
	}

	stream, _, err := h.streamRepo.StartCapture(ctx, event.RoomID, event.UniqueID, h.eventTime(event))
	if err != nil {
		return 0, err
	}
	h.roomStreams.Store(event.RoomID, stream.ID)
	return stream.ID, nil
}

func (h *Hub) handleStatus(ctx context.Context, event Event) error {
	if event.Status == nil {
		return models.NewValidationError("status event has no payload")
	}
	at := event.Status.At
	if at.IsZero() {
		at = h.now()
	}

	if event.Status.Live {
		stream, _, err := h.streamRepo.StartCapture(ctx, event.RoomID, event.UniqueID, at)
		if err != nil {
			return err
		}
		h.roomStreams.Store(event.RoomID, stream.ID)
		return nil
	}

	h.roomStreams.Delete(event.RoomID)
	stream, err := h.streamRepo.GetActiveCapture(ctx, event.RoomID)
	if err != nil {
		return err
	}
	if stream == nil {
		// Already terminal, or never captured. Nothing to end.
		return nil
	}
	_, err = h.streamRepo.MarkEnded(ctx, stream.ID, at)
	return err
}

func (h *Hub) handleComment(ctx context.Context, streamID uint, event Event) error {
	if event.Comment == nil {
		return models.NewValidationError("comment event has no payload")
	}
	at := event.Comment.CommentedAt
	if at.IsZero() {
		at = h.now()
	}

	created, err := h.commentRepo.CreateComment(ctx, &models.Comment{
		StreamID:     streamID,
		TikTokUserID: event.Comment.UserID,
		Nickname:     event.Comment.Nickname,
		Text:         event.Comment.Text,
		CommentedAt:  at,
	})
	if err != nil {
		return err
	}
	if !created {
		// Redelivered after a reconnect; the row is already durable.
		return nil
	}
	return h.streamRepo.IncrementComments(ctx, streamID)
}

func (h *Hub) handleStat(ctx context.Context, streamID uint, event Event) error {
	if event.Stat == nil {
		return models.NewValidationError("stat event has no payload")
	}
	at := event.Stat.RecordedAt
	if at.IsZero() {
		at = h.now()
	}

	created, err := h.statRepo.CreateStat(ctx, &models.StreamStat{
		StreamID:     streamID,
		RecordedAt:   at,
		ViewerCount:  event.Stat.ViewerCount,
		LikeCount:    event.Stat.LikeCount,
		CommentCount: event.Stat.CommentCount,
		GiftsValue:   event.Stat.GiftsValue,
	})
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	if err := h.streamRepo.RaiseViewerPeak(ctx, streamID, event.Stat.ViewerCount); err != nil {
		return err
	}
	return h.streamRepo.RaiseTotalLikes(ctx, streamID, event.Stat.LikeCount)
}

func (h *Hub) eventTime(event Event) time.Time {
	switch {
	case event.Comment != nil && !event.Comment.CommentedAt.IsZero():
		return event.Comment.CommentedAt
	case event.Stat != nil && !event.Stat.RecordedAt.IsZero():
		return event.Stat.RecordedAt
	case event.Gift != nil && !event.Gift.SentAt.IsZero():
		return event.Gift.SentAt
	case event.Like != nil && !event.Like.LikedAt.IsZero():
		return event.Like.LikedAt
	case event.Status != nil && !event.Status.At.IsZero():
		return event.Status.At
	}
	return h.now()
}
