package repository

import (
	"context"

	"streamlens/internal/models"

	"gorm.io/gorm"
)

// MergeStreams folds the source stream into the target and deletes the
// source, all inside one transaction. Both streams must belong to the same
// room; the check runs before any mutation so a rejected merge leaves both
// rows untouched.
//
// Duplicate events between the two captures (same viewer, same timestamp for
// comments; same sample timestamp for stats) are dropped from the source
// before re-parenting, which is what makes merge the recovery path for
// upstream redelivery after reconnects.
func (r *streamRepository) MergeStreams(ctx context.Context, targetID, sourceID uint) (*models.Stream, error) {
	var merged models.Stream

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target, source models.Stream
		if err := tx.First(&target, targetID).Error; err != nil {
			return err
		}
		if err := tx.First(&source, sourceID).Error; err != nil {
			return err
		}
		if target.RoomID != source.RoomID {
			return models.NewDifferentRoomsError(target.RoomID, source.RoomID)
		}

		// Drop source comments that already exist on the target.
		if err := tx.Exec(`
			DELETE FROM comments
			WHERE stream_id = ?
			  AND EXISTS (
				SELECT 1 FROM comments t
				WHERE t.stream_id = ?
				  AND t.tiktok_user_id = comments.tiktok_user_id
				  AND t.commented_at = comments.commented_at
			  )`, sourceID, targetID).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Comment{}).
			Where("stream_id = ?", sourceID).
			Update("stream_id", targetID).Error; err != nil {
			return err
		}

		// Same for stat samples, keyed by sample timestamp.
		if err := tx.Exec(`
			DELETE FROM stream_stats
			WHERE stream_id = ?
			  AND EXISTS (
				SELECT 1 FROM stream_stats t
				WHERE t.stream_id = ?
				  AND t.recorded_at = stream_stats.recorded_at
			  )`, sourceID, targetID).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.StreamStat{}).
			Where("stream_id = ?", sourceID).
			Update("stream_id", targetID).Error; err != nil {
			return err
		}

		// Move session links the target does not already hold, drop the rest.
		if err := tx.Exec(`
			DELETE FROM session_streams
			WHERE stream_id = ?
			  AND EXISTS (
				SELECT 1 FROM session_streams t
				WHERE t.stream_id = ?
				  AND t.session_id = session_streams.session_id
			  )`, sourceID, targetID).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.SessionStream{}).
			Where("stream_id = ?", sourceID).
			Update("stream_id", targetID).Error; err != nil {
			return err
		}

		// Fold aggregates. Re-counting comments from rows is cheaper than
		// reconciling the two running totals after dedup.
		updates := map[string]any{
			"viewer_count_peak": maxInt(target.ViewerCountPeak, source.ViewerCountPeak),
			"total_likes":       maxInt64(target.TotalLikes, source.TotalLikes),
			"total_gifts_value": target.TotalGiftsValue + source.TotalGiftsValue,
		}
		if at := earliest(target.StartedAt, source.StartedAt); at != nil {
			updates["started_at"] = *at
		}
		// A still-capturing target keeps its open window regardless of when
		// the source ended.
		if target.Status.Terminal() {
			if at := latest(target.EndedAt, source.EndedAt); at != nil {
				updates["ended_at"] = *at
			}
		}

		var commentCount int64
		if err := tx.Model(&models.Comment{}).Where("stream_id = ?", targetID).Count(&commentCount).Error; err != nil {
			return err
		}
		updates["total_comments"] = commentCount

		if err := tx.Model(&models.Stream{}).Where("id = ?", targetID).Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.Delete(&models.Stream{}, sourceID).Error; err != nil {
			return err
		}

		return tx.First(&merged, targetID).Error
	})
	if err != nil {
		return nil, err
	}
	return &merged, nil
}
