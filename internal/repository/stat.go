package repository

import (
	"context"

	"streamlens/internal/models"

	"gorm.io/gorm"
)

// StatRepository defines the interface for stream stat sample operations.
type StatRepository interface {
	CreateStat(ctx context.Context, stat *models.StreamStat) (bool, error)
	GetStats(ctx context.Context, streamID uint) ([]models.StreamStat, error)
	LatestStat(ctx context.Context, streamID uint) (*models.StreamStat, error)
}

type statRepository struct {
	db *gorm.DB
}

// NewStatRepository creates a new stat repository
func NewStatRepository(db *gorm.DB) StatRepository {
	return &statRepository{db: db}
}

// CreateStat inserts the sample unless one already exists for the stream at
// the same timestamp. Returns false for duplicates.
func (r *statRepository) CreateStat(ctx context.Context, stat *models.StreamStat) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.StreamStat{}).
			Where("stream_id = ? AND recorded_at = ?", stat.StreamID, stat.RecordedAt).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if err := tx.Create(stat).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func (r *statRepository) GetStats(ctx context.Context, streamID uint) ([]models.StreamStat, error) {
	var stats []models.StreamStat
	err := r.db.WithContext(ctx).
		Where("stream_id = ?", streamID).
		Order("recorded_at ASC").
		Find(&stats).Error
	return stats, err
}

func (r *statRepository) LatestStat(ctx context.Context, streamID uint) (*models.StreamStat, error) {
	var stat models.StreamStat
	err := r.db.WithContext(ctx).
		Where("stream_id = ?", streamID).
		Order("recorded_at DESC").
		First(&stat).Error
	if err != nil {
		return nil, err
	}
	return &stat, nil
}
