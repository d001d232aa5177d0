package repository

import (
	"context"
	"time"

	"streamlens/internal/models"

	"gorm.io/gorm"
)

// TextCount is a comment text with its occurrence count and time range,
// used by flash-sale detection.
type TextCount struct {
	Text      string    `json:"text"`
	Count     int64     `json:"count"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// LabelCount is a classification label with its occurrence count.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// CommentRepository defines the interface for comment data operations.
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) (bool, error)
	GetComments(ctx context.Context, streamID uint, limit, offset int) ([]*models.Comment, int64, error)
	GetCommentsChronological(ctx context.Context, streamID uint, limit, offset int) ([]*models.Comment, error)
	CountComments(ctx context.Context, streamID uint) (int64, error)

	ListUnassigned(ctx context.Context, streamID uint, limit int) ([]*models.Comment, error)
	SetParseResult(ctx context.Context, commentID uint, number int, sessionProductID *uint) error
	ClearParseResults(ctx context.Context, streamID, sessionID uint) (int64, error)

	ProductInterest(ctx context.Context, streamID uint) ([]models.ProductInterest, error)
	SentimentCounts(ctx context.Context, streamID uint, burstThreshold int) ([]LabelCount, error)
	CategoryCounts(ctx context.Context, streamID uint, burstThreshold int) ([]LabelCount, error)
	TextBursts(ctx context.Context, streamID uint, threshold int) ([]TextCount, error)
	TimestampsForText(ctx context.Context, streamID uint, text string) ([]time.Time, error)
}

// commentRepository implements CommentRepository
type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// CreateComment inserts the comment unless an identical delivery already
// exists for the stream. Returns false when the row was a duplicate. The
// same (viewer, timestamp) key drives cross-stream dedup during merge.
func (r *commentRepository) CreateComment(ctx context.Context, comment *models.Comment) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.Comment{}).
			Where("stream_id = ? AND tiktok_user_id = ? AND commented_at = ?",
				comment.StreamID, comment.TikTokUserID, comment.CommentedAt).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func (r *commentRepository) GetComments(ctx context.Context, streamID uint, limit, offset int) ([]*models.Comment, int64, error) {
	var comments []*models.Comment
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Comment{}).Where("stream_id = ?", streamID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("commented_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	if err != nil {
		return nil, 0, err
	}

	// Reverse to return chronological order
	for i, j := 0, len(comments)-1; i < j; i, j = i+1, j-1 {
		comments[i], comments[j] = comments[j], comments[i]
	}

	return comments, total, nil
}

func (r *commentRepository) GetCommentsChronological(ctx context.Context, streamID uint, limit, offset int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("stream_id = ?", streamID).
		Order("commented_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) CountComments(ctx context.Context, streamID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("stream_id = ?", streamID).
		Count(&count).Error
	return count, err
}

// ListUnassigned returns comments not yet resolved to a session product, in
// insertion order. The parse pass only touches these, so re-running it after
// a partial failure or a merge never rewrites settled rows.
func (r *commentRepository) ListUnassigned(ctx context.Context, streamID uint, limit int) ([]*models.Comment, error) {
	var comments []*models.Comment
	query := r.db.WithContext(ctx).
		Where("stream_id = ? AND session_product_id IS NULL", streamID).
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&comments).Error
	return comments, err
}

func (r *commentRepository) SetParseResult(ctx context.Context, commentID uint, number int, sessionProductID *uint) error {
	return r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", commentID).
		Updates(map[string]any{
			"parsed_product_number": number,
			"session_product_id":    sessionProductID,
		}).Error
}

// ClearParseResults resets parse output on comments resolved to products of
// the given session only. Links to other sessions survive an unlink.
func (r *commentRepository) ClearParseResults(ctx context.Context, streamID, sessionID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("stream_id = ? AND session_product_id IN (?)",
			streamID,
			r.db.Model(&models.SessionProduct{}).Select("id").Where("session_id = ?", sessionID),
		).
		Updates(map[string]any{
			"parsed_product_number": nil,
			"session_product_id":    nil,
		})
	return res.RowsAffected, res.Error
}

func (r *commentRepository) ProductInterest(ctx context.Context, streamID uint) ([]models.ProductInterest, error) {
	var interest []models.ProductInterest
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Select("comments.session_product_id AS session_product_id, session_products.position AS position, session_products.product_name AS product_name, COUNT(*) AS comment_count").
		Joins("JOIN session_products ON session_products.id = comments.session_product_id").
		Where("comments.stream_id = ? AND comments.session_product_id IS NOT NULL", streamID).
		Group("comments.session_product_id, session_products.position, session_products.product_name").
		Order("comment_count DESC, position ASC").
		Scan(&interest).Error
	return interest, err
}

// burstTexts selects comment texts repeated past the threshold. Breakdowns
// exclude these regardless of what the external classifier labeled them: a
// scripted purchase trigger classified "positive" is still spam.
func (r *commentRepository) burstTexts(streamID uint, threshold int) *gorm.DB {
	return r.db.Model(&models.Comment{}).
		Select("text").
		Where("stream_id = ?", streamID).
		Group("text").
		Having("COUNT(*) >= ?", threshold)
}

func (r *commentRepository) SentimentCounts(ctx context.Context, streamID uint, burstThreshold int) ([]LabelCount, error) {
	var counts []LabelCount
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Select("sentiment AS label, COUNT(*) AS count").
		Where("stream_id = ? AND sentiment IS NOT NULL AND (category IS NULL OR category <> ?)",
			streamID, models.CategoryFlashSale).
		Where("text NOT IN (?)", r.burstTexts(streamID, burstThreshold)).
		Group("sentiment").
		Order("count DESC").
		Scan(&counts).Error
	return counts, err
}

func (r *commentRepository) CategoryCounts(ctx context.Context, streamID uint, burstThreshold int) ([]LabelCount, error) {
	var counts []LabelCount
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Select("category AS label, COUNT(*) AS count").
		Where("stream_id = ? AND category IS NOT NULL AND category <> ?",
			streamID, models.CategoryFlashSale).
		Where("text NOT IN (?)", r.burstTexts(streamID, burstThreshold)).
		Group("category").
		Order("count DESC").
		Scan(&counts).Error
	return counts, err
}

func (r *commentRepository) TextBursts(ctx context.Context, streamID uint, threshold int) ([]TextCount, error) {
	var bursts []TextCount
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Select("text, COUNT(*) AS count, MIN(commented_at) AS first_seen, MAX(commented_at) AS last_seen").
		Where("stream_id = ?", streamID).
		Group("text").
		Having("COUNT(*) >= ?", threshold).
		Order("count DESC").
		Scan(&bursts).Error
	return bursts, err
}

func (r *commentRepository) TimestampsForText(ctx context.Context, streamID uint, text string) ([]time.Time, error) {
	var stamps []time.Time
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("stream_id = ? AND text = ?", streamID, text).
		Order("commented_at ASC").
		Pluck("commented_at", &stamps).Error
	return stamps, err
}
