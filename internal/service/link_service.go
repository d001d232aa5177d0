package service

import (
	"context"
	"errors"
	"time"

	"streamlens/internal/cache"
	"streamlens/internal/models"
	"streamlens/internal/observability"
	"streamlens/internal/parser"
	"streamlens/internal/repository"

	"gorm.io/gorm"
)

// LinkOutcome describes the result of a link or auto-link attempt.
type LinkOutcome string

const (
	LinkCreated       LinkOutcome = "linked"
	LinkAlreadyExists LinkOutcome = "already_linked"
	LinkNoWindow      LinkOutcome = "no_window"
	LinkNoActivity    LinkOutcome = "no_activity"
)

// LinkResult is what a link operation produced, including how many comments
// the triggered parse pass resolved.
type LinkResult struct {
	Outcome   LinkOutcome `json:"outcome"`
	SessionID uint        `json:"session_id,omitempty"`
	Assigned  int         `json:"assigned_comments"`
}

// LinkService associates captured streams with commerce sessions and runs
// the comment parse pass whenever an association appears.
type LinkService struct {
	streamRepo  repository.StreamRepository
	sessionRepo repository.SessionRepository
	commentRepo repository.CommentRepository

	now func() time.Time
}

type LinkInput struct {
	StreamID  uint
	SessionID uint
	LinkedBy  models.LinkedBy
}

func NewLinkService(
	streamRepo repository.StreamRepository,
	sessionRepo repository.SessionRepository,
	commentRepo repository.CommentRepository,
) *LinkService {
	return &LinkService{
		streamRepo:  streamRepo,
		sessionRepo: sessionRepo,
		commentRepo: commentRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Link creates a stream-session association and immediately parses the
// stream's unassigned comments against the session's product range.
func (s *LinkService) Link(ctx context.Context, in LinkInput) (*LinkResult, error) {
	if _, err := s.streamRepo.GetStreamByID(ctx, in.StreamID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Stream", in.StreamID)
		}
		return nil, err
	}

	maxPosition, err := s.sessionRepo.MaxPosition(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if maxPosition == 0 {
		return nil, models.NewNoProductsError(in.SessionID)
	}

	linkedBy := in.LinkedBy
	if linkedBy == "" {
		linkedBy = models.LinkedByManual
	}

	created, err := s.sessionRepo.CreateLink(ctx, &models.SessionStream{
		StreamID:  in.StreamID,
		SessionID: in.SessionID,
		LinkedAt:  s.now(),
		LinkedBy:  linkedBy,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return &LinkResult{Outcome: LinkAlreadyExists, SessionID: in.SessionID}, nil
	}

	assigned, err := s.runParsePass(ctx, in.StreamID, in.SessionID, maxPosition)
	if err != nil {
		return nil, err
	}

	cache.InvalidateStream(ctx, in.StreamID)
	return &LinkResult{Outcome: LinkCreated, SessionID: in.SessionID, Assigned: assigned}, nil
}

// Unlink removes the association and clears parse results that pointed into
// the unlinked session. Assignments to other sessions are untouched.
func (s *LinkService) Unlink(ctx context.Context, streamID, sessionID uint) (int64, error) {
	removed, err := s.sessionRepo.DeleteLink(ctx, streamID, sessionID)
	if err != nil {
		return 0, err
	}
	if !removed {
		return 0, models.NewNotFoundError("Link", sessionID)
	}

	cleared, err := s.commentRepo.ClearParseResults(ctx, streamID, sessionID)
	if err != nil {
		return 0, err
	}

	cache.InvalidateStream(ctx, streamID)
	return cleared, nil
}

// AutoLink applies the temporal heuristic: the session whose activity falls
// inside the stream's broadcast window, most recently updated first. A
// stream an operator already linked by hand is never second-guessed.
func (s *LinkService) AutoLink(ctx context.Context, streamID uint) (*LinkResult, error) {
	stream, err := s.streamRepo.GetStreamByID(ctx, streamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Stream", streamID)
		}
		return nil, err
	}

	hasManual, err := s.sessionRepo.HasManualLink(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if hasManual {
		return &LinkResult{Outcome: LinkAlreadyExists}, nil
	}

	if stream.StartedAt == nil || stream.EndedAt == nil {
		return &LinkResult{Outcome: LinkNoWindow}, nil
	}

	sessionID, found, err := s.sessionRepo.FindActiveSessionInWindow(ctx, *stream.StartedAt, *stream.EndedAt)
	if err != nil {
		return nil, err
	}
	if !found {
		return &LinkResult{Outcome: LinkNoActivity}, nil
	}

	return s.Link(ctx, LinkInput{
		StreamID:  streamID,
		SessionID: sessionID,
		LinkedBy:  models.LinkedByAuto,
	})
}

func (s *LinkService) GetLinks(ctx context.Context, streamID uint) ([]models.SessionStream, error) {
	return s.sessionRepo.GetLinks(ctx, streamID)
}

// runParsePass walks unassigned comments, extracts product numbers, and
// resolves in-range numbers to the session's products. Only comments with
// no assignment are touched, so the pass is safe to re-run.
func (s *LinkService) runParsePass(ctx context.Context, streamID, sessionID uint, maxPosition int) (int, error) {
	pending, err := s.commentRepo.ListUnassigned(ctx, streamID, 0)
	if err != nil {
		return 0, err
	}

	assigned := 0
	for _, comment := range pending {
		number, ok := parser.ParseProductNumber(comment.Text, maxPosition)
		observability.RecordParseResult(ok)
		if !ok {
			continue
		}

		product, err := s.sessionRepo.ProductByPosition(ctx, sessionID, number)
		if err != nil {
			return assigned, err
		}
		if product == nil {
			// Positions can be sparse; an in-range number with no product
			// stays unassigned.
			continue
		}

		if err := s.commentRepo.SetParseResult(ctx, comment.ID, number, &product.ID); err != nil {
			return assigned, err
		}
		assigned++
	}
	return assigned, nil
}
