package models

import (
	"time"
)

// Comment is a single viewer comment captured from the broadcast feed.
// ParsedProductNumber and SessionProductID are derived: they are filled by the
// parse pass after a session link exists, and SessionProductID is only ever
// set when the parsed number falls inside the linked session's position range.
type Comment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	StreamID     uint      `gorm:"not null;index" json:"stream_id"`
	TikTokUserID string    `gorm:"column:tiktok_user_id;size:64;not null" json:"tiktok_user_id"`
	Nickname     string    `gorm:"size:128" json:"nickname"`
	Text         string    `gorm:"type:text;not null" json:"text"`
	CommentedAt  time.Time `gorm:"not null;index" json:"commented_at"`

	ParsedProductNumber *int  `json:"parsed_product_number,omitempty"`
	SessionProductID    *uint `gorm:"index" json:"session_product_id,omitempty"`

	Sentiment    *string    `gorm:"size:32" json:"sentiment,omitempty"`
	Category     *string    `gorm:"size:64" json:"category,omitempty"`
	ClassifiedAt *time.Time `json:"classified_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// CategoryFlashSale is the classifier category excluded from sentiment and
// category totals: bursts of scripted purchase-trigger phrases.
const CategoryFlashSale = "flash_sale"
