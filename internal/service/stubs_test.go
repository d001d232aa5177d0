package service

import (
	"context"
	"time"

	"streamlens/internal/models"
	"streamlens/internal/orders"
	"streamlens/internal/repository"
)

// streamRepoStub is a stub for repository.StreamRepository.
type streamRepoStub struct {
	getByIDFn         func(context.Context, uint) (*models.Stream, error)
	listFn            func(context.Context, models.StreamStatus, int, int) ([]*models.Stream, int64, error)
	getActiveFn       func(context.Context, string) (*models.Stream, error)
	startCaptureFn    func(context.Context, string, string, time.Time) (*models.Stream, bool, error)
	markEndedFn       func(context.Context, uint, time.Time) (bool, error)
	markFailedFn      func(context.Context, uint, time.Time) (bool, error)
	markReportSentFn  func(context.Context, uint, time.Time) (bool, error)
	updateSummariesFn func(context.Context, uint, *string, *string) error
	deleteFn          func(context.Context, uint) error
	raisePeakFn       func(context.Context, uint, int) error
	raiseLikesFn      func(context.Context, uint, int64) error
	addGiftValueFn    func(context.Context, uint, int64) error
	incCommentsFn     func(context.Context, uint) error
	mergeFn           func(context.Context, uint, uint) (*models.Stream, error)
}

func (s *streamRepoStub) GetStreamByID(ctx context.Context, id uint) (*models.Stream, error) {
	return s.getByIDFn(ctx, id)
}
func (s *streamRepoStub) ListStreams(ctx context.Context, status models.StreamStatus, limit, offset int) ([]*models.Stream, int64, error) {
	return s.listFn(ctx, status, limit, offset)
}
func (s *streamRepoStub) GetActiveCapture(ctx context.Context, roomID string) (*models.Stream, error) {
	return s.getActiveFn(ctx, roomID)
}
func (s *streamRepoStub) StartCapture(ctx context.Context, roomID, uniqueID string, at time.Time) (*models.Stream, bool, error) {
	return s.startCaptureFn(ctx, roomID, uniqueID, at)
}
func (s *streamRepoStub) MarkEnded(ctx context.Context, id uint, at time.Time) (bool, error) {
	return s.markEndedFn(ctx, id, at)
}
func (s *streamRepoStub) MarkFailed(ctx context.Context, id uint, at time.Time) (bool, error) {
	return s.markFailedFn(ctx, id, at)
}
func (s *streamRepoStub) MarkReportSent(ctx context.Context, id uint, at time.Time) (bool, error) {
	return s.markReportSentFn(ctx, id, at)
}
func (s *streamRepoStub) UpdateSummaries(ctx context.Context, id uint, gmv, sentiment *string) error {
	return s.updateSummariesFn(ctx, id, gmv, sentiment)
}
func (s *streamRepoStub) DeleteStream(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *streamRepoStub) RaiseViewerPeak(ctx context.Context, id uint, count int) error {
	return s.raisePeakFn(ctx, id, count)
}
func (s *streamRepoStub) RaiseTotalLikes(ctx context.Context, id uint, total int64) error {
	return s.raiseLikesFn(ctx, id, total)
}
func (s *streamRepoStub) AddGiftValue(ctx context.Context, id uint, delta int64) error {
	return s.addGiftValueFn(ctx, id, delta)
}
func (s *streamRepoStub) IncrementComments(ctx context.Context, id uint) error {
	return s.incCommentsFn(ctx, id)
}
func (s *streamRepoStub) MergeStreams(ctx context.Context, targetID, sourceID uint) (*models.Stream, error) {
	return s.mergeFn(ctx, targetID, sourceID)
}

func noopStreamRepo() *streamRepoStub {
	return &streamRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.Stream, error) {
			return &models.Stream{ID: id, RoomID: "room-1", Status: models.StreamCapturing}, nil
		},
		listFn: func(_ context.Context, _ models.StreamStatus, _, _ int) ([]*models.Stream, int64, error) {
			return nil, 0, nil
		},
		getActiveFn: func(_ context.Context, _ string) (*models.Stream, error) { return nil, nil },
		startCaptureFn: func(_ context.Context, roomID, uniqueID string, at time.Time) (*models.Stream, bool, error) {
			return &models.Stream{ID: 1, RoomID: roomID, UniqueID: uniqueID, Status: models.StreamCapturing, StartedAt: &at}, true, nil
		},
		markEndedFn:       func(_ context.Context, _ uint, _ time.Time) (bool, error) { return true, nil },
		markFailedFn:      func(_ context.Context, _ uint, _ time.Time) (bool, error) { return true, nil },
		markReportSentFn:  func(_ context.Context, _ uint, _ time.Time) (bool, error) { return true, nil },
		updateSummariesFn: func(_ context.Context, _ uint, _, _ *string) error { return nil },
		deleteFn:          func(_ context.Context, _ uint) error { return nil },
		raisePeakFn:       func(_ context.Context, _ uint, _ int) error { return nil },
		raiseLikesFn:      func(_ context.Context, _ uint, _ int64) error { return nil },
		addGiftValueFn:    func(_ context.Context, _ uint, _ int64) error { return nil },
		incCommentsFn:     func(_ context.Context, _ uint) error { return nil },
		mergeFn: func(_ context.Context, targetID, _ uint) (*models.Stream, error) {
			return &models.Stream{ID: targetID}, nil
		},
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn            func(context.Context, *models.Comment) (bool, error)
	getCommentsFn       func(context.Context, uint, int, int) ([]*models.Comment, int64, error)
	getChronologicalFn  func(context.Context, uint, int, int) ([]*models.Comment, error)
	countFn             func(context.Context, uint) (int64, error)
	listUnassignedFn    func(context.Context, uint, int) ([]*models.Comment, error)
	setParseResultFn    func(context.Context, uint, int, *uint) error
	clearParseResultsFn func(context.Context, uint, uint) (int64, error)
	productInterestFn   func(context.Context, uint) ([]models.ProductInterest, error)
	sentimentCountsFn   func(context.Context, uint, int) ([]repository.LabelCount, error)
	categoryCountsFn    func(context.Context, uint, int) ([]repository.LabelCount, error)
	textBurstsFn        func(context.Context, uint, int) ([]repository.TextCount, error)
	timestampsFn        func(context.Context, uint, string) ([]time.Time, error)
}

func (s *commentRepoStub) CreateComment(ctx context.Context, comment *models.Comment) (bool, error) {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetComments(ctx context.Context, streamID uint, limit, offset int) ([]*models.Comment, int64, error) {
	return s.getCommentsFn(ctx, streamID, limit, offset)
}
func (s *commentRepoStub) GetCommentsChronological(ctx context.Context, streamID uint, limit, offset int) ([]*models.Comment, error) {
	return s.getChronologicalFn(ctx, streamID, limit, offset)
}
func (s *commentRepoStub) CountComments(ctx context.Context, streamID uint) (int64, error) {
	return s.countFn(ctx, streamID)
}
func (s *commentRepoStub) ListUnassigned(ctx context.Context, streamID uint, limit int) ([]*models.Comment, error) {
	return s.listUnassignedFn(ctx, streamID, limit)
}
func (s *commentRepoStub) SetParseResult(ctx context.Context, commentID uint, number int, sessionProductID *uint) error {
	return s.setParseResultFn(ctx, commentID, number, sessionProductID)
}
func (s *commentRepoStub) ClearParseResults(ctx context.Context, streamID, sessionID uint) (int64, error) {
	return s.clearParseResultsFn(ctx, streamID, sessionID)
}
func (s *commentRepoStub) ProductInterest(ctx context.Context, streamID uint) ([]models.ProductInterest, error) {
	return s.productInterestFn(ctx, streamID)
}
func (s *commentRepoStub) SentimentCounts(ctx context.Context, streamID uint, burstThreshold int) ([]repository.LabelCount, error) {
	return s.sentimentCountsFn(ctx, streamID, burstThreshold)
}
func (s *commentRepoStub) CategoryCounts(ctx context.Context, streamID uint, burstThreshold int) ([]repository.LabelCount, error) {
	return s.categoryCountsFn(ctx, streamID, burstThreshold)
}
func (s *commentRepoStub) TextBursts(ctx context.Context, streamID uint, threshold int) ([]repository.TextCount, error) {
	return s.textBurstsFn(ctx, streamID, threshold)
}
func (s *commentRepoStub) TimestampsForText(ctx context.Context, streamID uint, text string) ([]time.Time, error) {
	return s.timestampsFn(ctx, streamID, text)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, _ *models.Comment) (bool, error) { return true, nil },
		getCommentsFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Comment, int64, error) {
			return nil, 0, nil
		},
		getChronologicalFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Comment, error) { return nil, nil },
		countFn:            func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		listUnassignedFn:   func(_ context.Context, _ uint, _ int) ([]*models.Comment, error) { return nil, nil },
		setParseResultFn:   func(_ context.Context, _ uint, _ int, _ *uint) error { return nil },
		clearParseResultsFn: func(_ context.Context, _, _ uint) (int64, error) {
			return 0, nil
		},
		productInterestFn: func(_ context.Context, _ uint) ([]models.ProductInterest, error) { return nil, nil },
		sentimentCountsFn: func(_ context.Context, _ uint, _ int) ([]repository.LabelCount, error) { return nil, nil },
		categoryCountsFn:  func(_ context.Context, _ uint, _ int) ([]repository.LabelCount, error) { return nil, nil },
		textBurstsFn:      func(_ context.Context, _ uint, _ int) ([]repository.TextCount, error) { return nil, nil },
		timestampsFn:      func(_ context.Context, _ uint, _ string) ([]time.Time, error) { return nil, nil },
	}
}

// statRepoStub is a stub for repository.StatRepository.
type statRepoStub struct {
	createFn   func(context.Context, *models.StreamStat) (bool, error)
	getStatsFn func(context.Context, uint) ([]models.StreamStat, error)
	latestFn   func(context.Context, uint) (*models.StreamStat, error)
}

func (s *statRepoStub) CreateStat(ctx context.Context, stat *models.StreamStat) (bool, error) {
	return s.createFn(ctx, stat)
}
func (s *statRepoStub) GetStats(ctx context.Context, streamID uint) ([]models.StreamStat, error) {
	return s.getStatsFn(ctx, streamID)
}
func (s *statRepoStub) LatestStat(ctx context.Context, streamID uint) (*models.StreamStat, error) {
	return s.latestFn(ctx, streamID)
}

func noopStatRepo() *statRepoStub {
	return &statRepoStub{
		createFn:   func(_ context.Context, _ *models.StreamStat) (bool, error) { return true, nil },
		getStatsFn: func(_ context.Context, _ uint) ([]models.StreamStat, error) { return nil, nil },
		latestFn:   func(_ context.Context, _ uint) (*models.StreamStat, error) { return nil, nil },
	}
}

// sessionRepoStub is a stub for repository.SessionRepository.
type sessionRepoStub struct {
	getSessionFn        func(context.Context, uint) (*models.Session, error)
	maxPositionFn       func(context.Context, uint) (int, error)
	productByPositionFn func(context.Context, uint, int) (*models.SessionProduct, error)
	findInWindowFn      func(context.Context, time.Time, time.Time) (uint, bool, error)
	createLinkFn        func(context.Context, *models.SessionStream) (bool, error)
	deleteLinkFn        func(context.Context, uint, uint) (bool, error)
	getLinksFn          func(context.Context, uint) ([]models.SessionStream, error)
	hasManualLinkFn     func(context.Context, uint) (bool, error)
}

func (s *sessionRepoStub) GetSessionWithProducts(ctx context.Context, sessionID uint) (*models.Session, error) {
	return s.getSessionFn(ctx, sessionID)
}
func (s *sessionRepoStub) MaxPosition(ctx context.Context, sessionID uint) (int, error) {
	return s.maxPositionFn(ctx, sessionID)
}
func (s *sessionRepoStub) ProductByPosition(ctx context.Context, sessionID uint, position int) (*models.SessionProduct, error) {
	return s.productByPositionFn(ctx, sessionID, position)
}
func (s *sessionRepoStub) FindActiveSessionInWindow(ctx context.Context, start, end time.Time) (uint, bool, error) {
	return s.findInWindowFn(ctx, start, end)
}
func (s *sessionRepoStub) CreateLink(ctx context.Context, link *models.SessionStream) (bool, error) {
	return s.createLinkFn(ctx, link)
}
func (s *sessionRepoStub) DeleteLink(ctx context.Context, streamID, sessionID uint) (bool, error) {
	return s.deleteLinkFn(ctx, streamID, sessionID)
}
func (s *sessionRepoStub) GetLinks(ctx context.Context, streamID uint) ([]models.SessionStream, error) {
	return s.getLinksFn(ctx, streamID)
}
func (s *sessionRepoStub) HasManualLink(ctx context.Context, streamID uint) (bool, error) {
	return s.hasManualLinkFn(ctx, streamID)
}

func noopSessionRepo() *sessionRepoStub {
	return &sessionRepoStub{
		getSessionFn:  func(_ context.Context, id uint) (*models.Session, error) { return &models.Session{ID: id}, nil },
		maxPositionFn: func(_ context.Context, _ uint) (int, error) { return 10, nil },
		productByPositionFn: func(_ context.Context, sessionID uint, position int) (*models.SessionProduct, error) {
			return &models.SessionProduct{ID: uint(100 + position), SessionID: sessionID, Position: position}, nil
		},
		findInWindowFn:  func(_ context.Context, _, _ time.Time) (uint, bool, error) { return 0, false, nil },
		createLinkFn:    func(_ context.Context, _ *models.SessionStream) (bool, error) { return true, nil },
		deleteLinkFn:    func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		getLinksFn:      func(_ context.Context, _ uint) ([]models.SessionStream, error) { return nil, nil },
		hasManualLinkFn: func(_ context.Context, _ uint) (bool, error) { return false, nil },
	}
}

// orderListerStub is a stub for OrderLister.
type orderListerStub struct {
	listFn func(context.Context, time.Time, time.Time) ([]orders.Order, error)
}

func (s *orderListerStub) ListOrders(ctx context.Context, from, to time.Time) ([]orders.Order, error) {
	return s.listFn(ctx, from, to)
}

// publisherStub records published report payloads.
type publisherStub struct {
	published [][]byte
	err       error
}

func (s *publisherStub) PublishReport(_ context.Context, _ uint, payload []byte) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, payload)
	return nil
}
