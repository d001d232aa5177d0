package models

import (
	"time"
)

// LinkedBy records who created a stream-session association.
type LinkedBy string

const (
	// LinkedByManual marks a link created by an operator action.
	LinkedByManual LinkedBy = "manual"
	// LinkedByAuto marks a link created by the temporal detection heuristic.
	LinkedByAuto LinkedBy = "auto"
)

// SessionStream associates a capture session with a commerce session.
type SessionStream struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StreamID  uint      `gorm:"not null;uniqueIndex:idx_session_streams_pair" json:"stream_id"`
	SessionID uint      `gorm:"not null;uniqueIndex:idx_session_streams_pair" json:"session_id"`
	LinkedAt  time.Time `gorm:"not null" json:"linked_at"`
	LinkedBy  LinkedBy  `gorm:"size:16;not null" json:"linked_by"`
}

// Session is a curated, positionally ordered list of catalog products shown
// during a commerce broadcast. Sessions are owned by the catalog service;
// this subsystem only reads them.
type Session struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	Title     string           `gorm:"size:255" json:"title"`
	Products  []SessionProduct `gorm:"foreignKey:SessionID" json:"products,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// SessionProduct is one catalog product at a 1-based position in a session.
type SessionProduct struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	SessionID   uint   `gorm:"not null;index" json:"session_id"`
	Position    int    `gorm:"not null" json:"position"`
	ProductID   uint   `gorm:"not null" json:"product_id"`
	ProductName string `gorm:"size:255" json:"product_name"`
}

// SessionActivity is a session state-change timestamp published by the
// catalog service. The auto-link heuristic looks for the activity row inside
// the stream's [started_at, ended_at] window whose UpdatedAt is the most
// recent: whichever session state was live at stream end.
type SessionActivity struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionID  uint      `gorm:"not null;index" json:"session_id"`
	OccurredAt time.Time `gorm:"not null;index" json:"occurred_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
