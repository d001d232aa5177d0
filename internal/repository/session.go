package repository

import (
	"context"
	"errors"
	"time"

	"streamlens/internal/models"

	"gorm.io/gorm"
)

// SessionRepository reads the catalog service's session mirror and manages
// stream-session links.
type SessionRepository interface {
	GetSessionWithProducts(ctx context.Context, sessionID uint) (*models.Session, error)
	MaxPosition(ctx context.Context, sessionID uint) (int, error)
	ProductByPosition(ctx context.Context, sessionID uint, position int) (*models.SessionProduct, error)

	// FindActiveSessionInWindow returns the session whose activity row inside
	// [start, end] has the greatest updated_at: the session state that was
	// live when the stream ended. Returns (0, false, nil) when no activity
	// falls in the window.
	FindActiveSessionInWindow(ctx context.Context, start, end time.Time) (uint, bool, error)

	CreateLink(ctx context.Context, link *models.SessionStream) (bool, error)
	DeleteLink(ctx context.Context, streamID, sessionID uint) (bool, error)
	GetLinks(ctx context.Context, streamID uint) ([]models.SessionStream, error)
	HasManualLink(ctx context.Context, streamID uint) (bool, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) GetSessionWithProducts(ctx context.Context, sessionID uint) (*models.Session, error) {
	var session models.Session
	err := r.db.WithContext(ctx).
		Preload("Products", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&session, sessionID).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) MaxPosition(ctx context.Context, sessionID uint) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).Model(&models.SessionProduct{}).
		Where("session_id = ?", sessionID).
		Select("MAX(position)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (r *sessionRepository) ProductByPosition(ctx context.Context, sessionID uint, position int) (*models.SessionProduct, error) {
	var product models.SessionProduct
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND position = ?", sessionID, position).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *sessionRepository) FindActiveSessionInWindow(ctx context.Context, start, end time.Time) (uint, bool, error) {
	var activity models.SessionActivity
	err := r.db.WithContext(ctx).
		Where("occurred_at >= ? AND occurred_at <= ?", start, end).
		Order("updated_at DESC, occurred_at DESC").
		First(&activity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return activity.SessionID, true, nil
}

// CreateLink inserts the link unless the pair already exists. Returns false
// when the stream was already linked to the session.
func (r *sessionRepository) CreateLink(ctx context.Context, link *models.SessionStream) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.SessionStream{}).
			Where("stream_id = ? AND session_id = ?", link.StreamID, link.SessionID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if err := tx.Create(link).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func (r *sessionRepository) DeleteLink(ctx context.Context, streamID, sessionID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("stream_id = ? AND session_id = ?", streamID, sessionID).
		Delete(&models.SessionStream{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *sessionRepository) GetLinks(ctx context.Context, streamID uint) ([]models.SessionStream, error) {
	var links []models.SessionStream
	err := r.db.WithContext(ctx).
		Where("stream_id = ?", streamID).
		Order("linked_at ASC").
		Find(&links).Error
	return links, err
}

func (r *sessionRepository) HasManualLink(ctx context.Context, streamID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SessionStream{}).
		Where("stream_id = ? AND linked_by = ?", streamID, models.LinkedByManual).
		Count(&count).Error
	return count > 0, err
}
