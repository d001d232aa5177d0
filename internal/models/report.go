package models

import (
	"time"
)

// ProductInterest ranks a session product by how many comments referenced it.
type ProductInterest struct {
	SessionProductID uint   `json:"session_product_id"`
	Position         int    `json:"position"`
	ProductName      string `json:"product_name"`
	CommentCount     int64  `json:"comment_count"`
}

// GMVBucket is one hour of order volume, amounts in cents.
type GMVBucket struct {
	Hour        time.Time `json:"hour"`
	OrderCount  int       `json:"order_count"`
	AmountCents int64     `json:"amount_cents"`
}

// BreakdownEntry is one label's share of a classified comment corpus.
type BreakdownEntry struct {
	Label   string `json:"label"`
	Count   int64  `json:"count"`
	Percent int    `json:"percent"`
}

// Breakdown is a sentiment or category distribution. NoData is set when the
// corpus had nothing classifiable, which is distinct from an all-zero split.
type Breakdown struct {
	Total   int64            `json:"total"`
	Entries []BreakdownEntry `json:"entries"`
	NoData  bool             `json:"no_data,omitempty"`
}

// FlashSaleEntry is a comment text that repeated past the burst threshold.
type FlashSaleEntry struct {
	Text       string    `json:"text"`
	Count      int64     `json:"count"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	PeakMinute time.Time `json:"peak_minute"`
}

// StatsSummary is the headline counters block of a report.
type StatsSummary struct {
	ViewerCountPeak int        `json:"viewer_count_peak"`
	TotalLikes      int64      `json:"total_likes"`
	TotalComments   int64      `json:"total_comments"`
	TotalGiftsValue int64      `json:"total_gifts_value"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	Duration        string     `json:"duration,omitempty"`
}

// StreamReport is the assembled analytics payload delivered to the
// notification sink. Sections are best-effort: a nil section means its
// source failed or had no data, and the report is still valid.
type StreamReport struct {
	ReportID        string            `json:"report_id"`
	StreamID        uint              `json:"stream_id"`
	RoomID          string            `json:"room_id"`
	GeneratedAt     time.Time         `json:"generated_at"`
	Stats           StatsSummary      `json:"stats"`
	StatSeries      []StreamStat      `json:"stat_series,omitempty"`
	ProductInterest []ProductInterest `json:"product_interest,omitempty"`
	FlashSales      []FlashSaleEntry  `json:"flash_sales,omitempty"`
	Sentiment       *Breakdown        `json:"sentiment,omitempty"`
	Categories      *Breakdown        `json:"categories,omitempty"`
	GMV             []GMVBucket       `json:"gmv,omitempty"`
	SampledComments []Comment         `json:"sampled_comments,omitempty"`
}
