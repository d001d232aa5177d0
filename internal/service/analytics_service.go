package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"streamlens/internal/cache"
	"streamlens/internal/models"
	"streamlens/internal/orders"
	"streamlens/internal/repository"

	"gorm.io/gorm"
)

// OrderLister is the slice of the order client the aggregator needs.
type OrderLister interface {
	ListOrders(ctx context.Context, from, to time.Time) ([]orders.Order, error)
}

// AnalyticsService computes product interest, GMV hourly buckets, and
// sentiment/category breakdowns for a captured stream.
type AnalyticsService struct {
	streamRepo  repository.StreamRepository
	commentRepo repository.CommentRepository
	orderClient OrderLister

	// flashThreshold is the burst size at which a repeated text stops
	// counting toward sentiment/category totals.
	flashThreshold int
}

func NewAnalyticsService(
	streamRepo repository.StreamRepository,
	commentRepo repository.CommentRepository,
	orderClient OrderLister,
	flashThreshold int,
) *AnalyticsService {
	if flashThreshold <= 0 {
		flashThreshold = 50
	}
	return &AnalyticsService{
		streamRepo:     streamRepo,
		commentRepo:    commentRepo,
		orderClient:    orderClient,
		flashThreshold: flashThreshold,
	}
}

func (s *AnalyticsService) requireStream(ctx context.Context, streamID uint) (*models.Stream, error) {
	stream, err := s.streamRepo.GetStreamByID(ctx, streamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Stream", streamID)
		}
		return nil, err
	}
	return stream, nil
}

// ProductInterest ranks the linked session's products by comment mentions.
// Results are cached briefly; merges and re-links invalidate the key.
func (s *AnalyticsService) ProductInterest(ctx context.Context, streamID uint) ([]models.ProductInterest, error) {
	if _, err := s.requireStream(ctx, streamID); err != nil {
		return nil, err
	}

	var interest []models.ProductInterest
	err := cache.CacheAside(ctx, cache.ProductInterestKey(streamID), &interest, cache.ProductInterestTTL, func() error {
		var fetchErr error
		interest, fetchErr = s.commentRepo.ProductInterest(ctx, streamID)
		return fetchErr
	})
	return interest, err
}

// GMVSeries buckets the stream window's orders into UTC hours. Cancelled
// orders are dropped; an unparseable amount contributes zero rather than
// failing the series.
func (s *AnalyticsService) GMVSeries(ctx context.Context, streamID uint) ([]models.GMVBucket, error) {
	stream, err := s.requireStream(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if stream.StartedAt == nil {
		return []models.GMVBucket{}, nil
	}
	if s.orderClient == nil {
		return nil, models.NewUpstreamError("order service", errors.New("order client not configured"))
	}

	end := time.Now().UTC()
	if stream.EndedAt != nil {
		end = *stream.EndedAt
	}

	rows, err := s.orderClient.ListOrders(ctx, *stream.StartedAt, end)
	if err != nil {
		return nil, err
	}

	buckets := map[time.Time]*models.GMVBucket{}
	for _, order := range rows {
		if order.Status == orders.StatusCancelled {
			continue
		}
		hour := order.CreatedAt.UTC().Truncate(time.Hour)
		bucket, ok := buckets[hour]
		if !ok {
			bucket = &models.GMVBucket{Hour: hour}
			buckets[hour] = bucket
		}
		bucket.OrderCount++
		bucket.AmountCents += parseAmountCents(order.Amount)
	}

	series := make([]models.GMVBucket, 0, len(buckets))
	for _, bucket := range buckets {
		series = append(series, *bucket)
	}
	sortBucketsChronological(series)
	return series, nil
}

// SentimentBreakdown aggregates classified comment sentiment, excluding the
// flash-sale category and burst-flagged texts. Total zero yields an explicit
// no-data result so the reader can tell "nobody said anything" from
// "everything was neutral".
func (s *AnalyticsService) SentimentBreakdown(ctx context.Context, streamID uint) (*models.Breakdown, error) {
	if _, err := s.requireStream(ctx, streamID); err != nil {
		return nil, err
	}
	counts, err := s.commentRepo.SentimentCounts(ctx, streamID, s.flashThreshold)
	if err != nil {
		return nil, err
	}
	return buildBreakdown(counts), nil
}

// CategoryBreakdown aggregates comment categories, excluding flash-sale spam
// and burst-flagged texts.
func (s *AnalyticsService) CategoryBreakdown(ctx context.Context, streamID uint) (*models.Breakdown, error) {
	if _, err := s.requireStream(ctx, streamID); err != nil {
		return nil, err
	}
	counts, err := s.commentRepo.CategoryCounts(ctx, streamID, s.flashThreshold)
	if err != nil {
		return nil, err
	}
	return buildBreakdown(counts), nil
}

func buildBreakdown(counts []repository.LabelCount) *models.Breakdown {
	var total int64
	for _, c := range counts {
		total += c.Count
	}
	if total == 0 {
		return &models.Breakdown{NoData: true}
	}

	entries := make([]models.BreakdownEntry, 0, len(counts))
	for _, c := range counts {
		entries = append(entries, models.BreakdownEntry{
			Label:   c.Label,
			Count:   c.Count,
			Percent: int(math.Round(float64(c.Count) / float64(total) * 100)),
		})
	}
	return &models.Breakdown{Total: total, Entries: entries}
}

// parseAmountCents converts a decimal money string ("12.50") to cents.
// Malformed input yields 0; a lost row beats a lost report.
func parseAmountCents(amount string) int64 {
	if amount == "" {
		return 0
	}

	negative := false
	i := 0
	if amount[0] == '-' {
		negative = true
		i = 1
	}

	var whole, frac int64
	fracDigits := 0
	seenDot := false
	seenDigit := false

	for ; i < len(amount); i++ {
		ch := amount[i]
		switch {
		case ch >= '0' && ch <= '9':
			seenDigit = true
			if seenDot {
				if fracDigits < 2 {
					frac = frac*10 + int64(ch-'0')
					fracDigits++
				}
			} else {
				whole = whole*10 + int64(ch-'0')
			}
		case ch == '.' && !seenDot:
			seenDot = true
		default:
			return 0
		}
	}
	if !seenDigit {
		return 0
	}

	for fracDigits < 2 {
		frac *= 10
		fracDigits++
	}

	cents := whole*100 + frac
	if negative {
		cents = -cents
	}
	return cents
}

func sortBucketsChronological(buckets []models.GMVBucket) {
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Hour.Before(buckets[j].Hour)
	})
}
