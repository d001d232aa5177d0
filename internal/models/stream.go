// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// StreamStatus is the lifecycle state of a capture session.
type StreamStatus string

const (
	// StreamCapturing means events are still being appended to the stream.
	StreamCapturing StreamStatus = "capturing"
	// StreamEnded is the terminal state after an explicit stop or detected offline.
	StreamEnded StreamStatus = "ended"
	// StreamFailed is the terminal state for captures that died mid-broadcast.
	StreamFailed StreamStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s StreamStatus) Terminal() bool {
	return s == StreamEnded || s == StreamFailed
}

// Stream represents one continuous recording attempt of a live broadcast.
// RoomID is the broadcast's external identifier and is stable across
// reconnects; at most one Stream per RoomID may be in StreamCapturing at a
// time. Running totals are persisted via atomic column updates (never held
// only in process memory) so a restart loses nothing.
type Stream struct {
	ID              uint         `gorm:"primaryKey" json:"id"`
	RoomID          string       `gorm:"size:64;not null;index" json:"room_id"`
	UniqueID        string       `gorm:"size:128" json:"unique_id"`
	Status          StreamStatus `gorm:"size:16;not null;index" json:"status"`
	StartedAt       *time.Time   `json:"started_at,omitempty"`
	EndedAt         *time.Time   `json:"ended_at,omitempty"`
	ViewerCountPeak int          `gorm:"default:0" json:"viewer_count_peak"`
	TotalLikes      int64        `gorm:"default:0" json:"total_likes"`
	TotalComments   int64        `gorm:"default:0" json:"total_comments"`
	TotalGiftsValue int64        `gorm:"default:0" json:"total_gifts_value"`
	// GMVSummary is the cached JSON of the last computed GMV series, if any.
	GMVSummary *string `gorm:"type:text" json:"gmv_summary,omitempty"`
	// SentimentSummary is the cached qualitative summary text, if any.
	SentimentSummary *string    `gorm:"type:text" json:"sentiment_summary,omitempty"`
	ReportSentAt     *time.Time `json:"report_sent_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// StreamStat is a time-series sample of the broadcast's counters.
type StreamStat struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	StreamID     uint      `gorm:"not null;index" json:"stream_id"`
	RecordedAt   time.Time `gorm:"not null;index" json:"recorded_at"`
	ViewerCount  int       `gorm:"default:0" json:"viewer_count"`
	LikeCount    int64     `gorm:"default:0" json:"like_count"`
	CommentCount int64     `gorm:"default:0" json:"comment_count"`
	GiftsValue   int64     `gorm:"default:0" json:"gifts_value"`
	CreatedAt    time.Time `json:"created_at"`
}
