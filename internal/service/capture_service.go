// Package service contains the application's business logic.
package service

import (
	"context"
	"time"

	"streamlens/internal/cache"
	"streamlens/internal/models"
	"streamlens/internal/observability"
	"streamlens/internal/repository"
	"streamlens/internal/validation"
)

// CaptureService owns the capture session lifecycle: one capturing stream
// per room, idempotent terminal transitions, and the merge recovery path.
type CaptureService struct {
	streamRepo  repository.StreamRepository
	commentRepo repository.CommentRepository
	statRepo    repository.StatRepository

	// isLive, when set, gates StartCapture on the room actually
	// broadcasting. Nil skips the check (events arriving implies live).
	isLive func(ctx context.Context, roomID string) (bool, error)

	now func() time.Time
}

type StartCaptureInput struct {
	RoomID   string
	UniqueID string
}

type MergeInput struct {
	TargetID uint
	SourceID uint
}

func NewCaptureService(
	streamRepo repository.StreamRepository,
	commentRepo repository.CommentRepository,
	statRepo repository.StatRepository,
	isLive func(ctx context.Context, roomID string) (bool, error),
) *CaptureService {
	return &CaptureService{
		streamRepo:  streamRepo,
		commentRepo: commentRepo,
		statRepo:    statRepo,
		isLive:      isLive,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// StartCapture begins (or resumes) capturing the room. The boolean is false
// when a capture was already running and that stream is returned instead.
func (s *CaptureService) StartCapture(ctx context.Context, in StartCaptureInput) (*models.Stream, bool, error) {
	if in.RoomID == "" {
		return nil, false, models.NewValidationError("room_id is required")
	}
	if err := validation.ValidateRoomID(in.RoomID); err != nil {
		return nil, false, models.NewValidationError(err.Error())
	}
	if in.UniqueID != "" {
		if err := validation.ValidateUniqueID(in.UniqueID); err != nil {
			return nil, false, models.NewValidationError(err.Error())
		}
	}

	if s.isLive != nil {
		live, err := s.isLive(ctx, in.RoomID)
		if err != nil {
			return nil, false, models.NewUpstreamError("liveness check", err)
		}
		if !live {
			return nil, false, models.NewNoLiveError(in.RoomID)
		}
	}

	return s.streamRepo.StartCapture(ctx, in.RoomID, in.UniqueID, s.now())
}

// StopCapture marks the stream ended. The boolean is false when the stream
// was already in a terminal state; the caller treats that as success.
func (s *CaptureService) StopCapture(ctx context.Context, streamID uint) (*models.Stream, bool, error) {
	applied, err := s.streamRepo.MarkEnded(ctx, streamID, s.now())
	if err != nil {
		return nil, false, err
	}
	stream, err := s.streamRepo.GetStreamByID(ctx, streamID)
	if err != nil {
		return nil, false, err
	}
	return stream, applied, nil
}

// FailCapture marks the stream failed, for captures that died mid-broadcast.
func (s *CaptureService) FailCapture(ctx context.Context, streamID uint) (*models.Stream, bool, error) {
	applied, err := s.streamRepo.MarkFailed(ctx, streamID, s.now())
	if err != nil {
		return nil, false, err
	}
	stream, err := s.streamRepo.GetStreamByID(ctx, streamID)
	if err != nil {
		return nil, false, err
	}
	return stream, applied, nil
}

func (s *CaptureService) GetStream(ctx context.Context, streamID uint) (*models.Stream, error) {
	return s.streamRepo.GetStreamByID(ctx, streamID)
}

func (s *CaptureService) ListStreams(ctx context.Context, status models.StreamStatus, limit, offset int) ([]*models.Stream, int64, error) {
	return s.streamRepo.ListStreams(ctx, status, limit, offset)
}

func (s *CaptureService) GetComments(ctx context.Context, streamID uint, limit, offset int) ([]*models.Comment, int64, error) {
	if _, err := s.streamRepo.GetStreamByID(ctx, streamID); err != nil {
		return nil, 0, err
	}
	return s.commentRepo.GetComments(ctx, streamID, limit, offset)
}

func (s *CaptureService) GetStats(ctx context.Context, streamID uint) ([]models.StreamStat, error) {
	if _, err := s.streamRepo.GetStreamByID(ctx, streamID); err != nil {
		return nil, err
	}
	return s.statRepo.GetStats(ctx, streamID)
}

// Merge folds the source capture into the target and invalidates the
// target's cached analytics, since its comment set just changed.
func (s *CaptureService) Merge(ctx context.Context, in MergeInput) (*models.Stream, error) {
	if in.TargetID == in.SourceID {
		return nil, models.NewValidationError("cannot merge a stream into itself")
	}

	merged, err := s.streamRepo.MergeStreams(ctx, in.TargetID, in.SourceID)
	if err != nil {
		return nil, err
	}

	observability.StreamMergesTotal.Inc()
	cache.InvalidateStream(ctx, merged.ID)
	return merged, nil
}

func (s *CaptureService) DeleteStream(ctx context.Context, streamID uint) error {
	if _, err := s.streamRepo.GetStreamByID(ctx, streamID); err != nil {
		return err
	}
	if err := s.streamRepo.DeleteStream(ctx, streamID); err != nil {
		return err
	}
	cache.InvalidateStream(ctx, streamID)
	return nil
}
