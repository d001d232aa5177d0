// Package repository contains the data access layer.
package repository

import (
	"context"
	"errors"
	"time"

	"streamlens/internal/models"

	"gorm.io/gorm"
)

// StreamRepository defines the interface for capture session data operations.
//
// Terminal transitions (MarkEnded, MarkFailed, MarkReportSent) are single
// conditional UPDATEs: the first caller wins and gets applied=true, racing
// callers get applied=false with the row untouched. This is what makes the
// operations safe to call from both the explicit stop path and the
// offline-detection path at the same time.
type StreamRepository interface {
	GetStreamByID(ctx context.Context, id uint) (*models.Stream, error)
	ListStreams(ctx context.Context, status models.StreamStatus, limit, offset int) ([]*models.Stream, int64, error)
	GetActiveCapture(ctx context.Context, roomID string) (*models.Stream, error)
	StartCapture(ctx context.Context, roomID, uniqueID string, at time.Time) (*models.Stream, bool, error)
	MarkEnded(ctx context.Context, id uint, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id uint, at time.Time) (bool, error)
	MarkReportSent(ctx context.Context, id uint, at time.Time) (bool, error)
	UpdateSummaries(ctx context.Context, id uint, gmvSummary, sentimentSummary *string) error
	DeleteStream(ctx context.Context, id uint) error

	// Restart-safe running totals, persisted as atomic column updates.
	RaiseViewerPeak(ctx context.Context, id uint, count int) error
	RaiseTotalLikes(ctx context.Context, id uint, total int64) error
	AddGiftValue(ctx context.Context, id uint, delta int64) error
	IncrementComments(ctx context.Context, id uint) error

	MergeStreams(ctx context.Context, targetID, sourceID uint) (*models.Stream, error)
}

// streamRepository implements StreamRepository
type streamRepository struct {
	db *gorm.DB
}

// NewStreamRepository creates a new stream repository
func NewStreamRepository(db *gorm.DB) StreamRepository {
	return &streamRepository{db: db}
}

func (r *streamRepository) GetStreamByID(ctx context.Context, id uint) (*models.Stream, error) {
	var stream models.Stream
	err := r.db.WithContext(ctx).First(&stream, id).Error
	if err != nil {
		return nil, err
	}
	return &stream, nil
}

func (r *streamRepository) ListStreams(ctx context.Context, status models.StreamStatus, limit, offset int) ([]*models.Stream, int64, error) {
	var streams []*models.Stream
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Stream{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&streams).Error

	return streams, total, err
}

func (r *streamRepository) GetActiveCapture(ctx context.Context, roomID string) (*models.Stream, error) {
	var stream models.Stream
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND status = ?", roomID, models.StreamCapturing).
		First(&stream).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &stream, nil
}

// StartCapture returns the room's capturing stream, creating one when none
// exists. The second return value is true when a new row was created. The
// find-and-create runs in one transaction so concurrent starts for the same
// room converge on a single capturing row.
func (r *streamRepository) StartCapture(ctx context.Context, roomID, uniqueID string, at time.Time) (*models.Stream, bool, error) {
	var stream models.Stream
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("room_id = ? AND status = ?", roomID, models.StreamCapturing).
			First(&stream).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		startedAt := at
		stream = models.Stream{
			RoomID:    roomID,
			UniqueID:  uniqueID,
			Status:    models.StreamCapturing,
			StartedAt: &startedAt,
		}
		if err := tx.Create(&stream).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &stream, created, nil
}

func (r *streamRepository) markTerminal(ctx context.Context, id uint, to models.StreamStatus, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Stream{}).
		Where("id = ? AND status = ?", id, models.StreamCapturing).
		Updates(map[string]any{
			"status":   to,
			"ended_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// Nothing updated: distinguish "already terminal" from "no such stream".
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Stream{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, gorm.ErrRecordNotFound
	}
	return false, nil
}

func (r *streamRepository) MarkEnded(ctx context.Context, id uint, at time.Time) (bool, error) {
	return r.markTerminal(ctx, id, models.StreamEnded, at)
}

func (r *streamRepository) MarkFailed(ctx context.Context, id uint, at time.Time) (bool, error) {
	return r.markTerminal(ctx, id, models.StreamFailed, at)
}

func (r *streamRepository) MarkReportSent(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Stream{}).
		Where("id = ? AND report_sent_at IS NULL", id).
		Update("report_sent_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Stream{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, gorm.ErrRecordNotFound
	}
	return false, nil
}

func (r *streamRepository) UpdateSummaries(ctx context.Context, id uint, gmvSummary, sentimentSummary *string) error {
	updates := map[string]any{}
	if gmvSummary != nil {
		updates["gmv_summary"] = *gmvSummary
	}
	if sentimentSummary != nil {
		updates["sentiment_summary"] = *sentimentSummary
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Stream{}).Where("id = ?", id).Updates(updates).Error
}

func (r *streamRepository) DeleteStream(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("stream_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("stream_id = ?", id).Delete(&models.StreamStat{}).Error; err != nil {
			return err
		}
		if err := tx.Where("stream_id = ?", id).Delete(&models.SessionStream{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Stream{}, id).Error
	})
}

// RaiseViewerPeak updates the peak only when the sample exceeds it, so stale
// or out-of-order samples never lower the recorded maximum.
func (r *streamRepository) RaiseViewerPeak(ctx context.Context, id uint, count int) error {
	return r.db.WithContext(ctx).Model(&models.Stream{}).
		Where("id = ? AND viewer_count_peak < ?", id, count).
		UpdateColumn("viewer_count_peak", count).Error
}

// RaiseTotalLikes stores the cumulative like counter reported by the feed.
// The counter is monotonic upstream, so a conditional max absorbs replays.
func (r *streamRepository) RaiseTotalLikes(ctx context.Context, id uint, total int64) error {
	return r.db.WithContext(ctx).Model(&models.Stream{}).
		Where("id = ? AND total_likes < ?", id, total).
		UpdateColumn("total_likes", total).Error
}

func (r *streamRepository) AddGiftValue(ctx context.Context, id uint, delta int64) error {
	return r.db.WithContext(ctx).Model(&models.Stream{}).Where("id = ?", id).
		UpdateColumn("total_gifts_value", gorm.Expr("total_gifts_value + ?", delta)).Error
}

func (r *streamRepository) IncrementComments(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Stream{}).Where("id = ?", id).
		UpdateColumn("total_comments", gorm.Expr("total_comments + 1")).Error
}
