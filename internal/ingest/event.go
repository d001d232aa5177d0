// Package ingest moves raw broadcast events from the upstream feed into
// durable storage. It knows nothing about parsing or analytics; those run
// against the stored rows later.
package ingest

import "time"

// EventType discriminates the envelope payload.
type EventType string

const (
	EventComment    EventType = "comment"
	EventStat       EventType = "stat"
	EventGift       EventType = "gift"
	EventLike       EventType = "like"
	EventLiveStatus EventType = "live_status"
)

// CommentPayload is a viewer chat message.
type CommentPayload struct {
	UserID      string    `json:"user_id"`
	Nickname    string    `json:"nickname"`
	Text        string    `json:"text"`
	CommentedAt time.Time `json:"commented_at"`
}

// StatPayload is a periodic metrics sample from the broadcast.
type StatPayload struct {
	ViewerCount  int       `json:"viewer_count"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
	GiftsValue   int64     `json:"gifts_value"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// GiftPayload is a gift with its diamond value.
type GiftPayload struct {
	Value  int64     `json:"value"`
	SentAt time.Time `json:"sent_at"`
}

// LikePayload carries the broadcast's running like total.
type LikePayload struct {
	Total   int64     `json:"total"`
	LikedAt time.Time `json:"liked_at"`
}

// StatusPayload signals the broadcast going live or ending.
type StatusPayload struct {
	Live bool      `json:"live"`
	At   time.Time `json:"at"`
}

// Event is the wire envelope pushed by the feed. Exactly one payload field
// matching Type is set.
type Event struct {
	Type     EventType `json:"type"`
	RoomID   string    `json:"room_id"`
	UniqueID string    `json:"unique_id,omitempty"`

	Comment *CommentPayload `json:"comment,omitempty"`
	Stat    *StatPayload    `json:"stat,omitempty"`
	Gift    *GiftPayload    `json:"gift,omitempty"`
	Like    *LikePayload    `json:"like,omitempty"`
	Status  *StatusPayload  `json:"status,omitempty"`
}
