package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"streamlens/internal/cache"
	"streamlens/internal/models"
	"streamlens/internal/observability"
	"streamlens/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportPublisher delivers an assembled report payload to the notification
// sink. Rendering is the sink's problem; the payload is opaque JSON here.
type ReportPublisher interface {
	PublishReport(ctx context.Context, streamID uint, payload []byte) error
}

// SendOutcome discriminates the send result for racing callers.
type SendOutcome string

const (
	SendDelivered   SendOutcome = "sent"
	SendAlreadySent SendOutcome = "already_sent"
)

// ReportService detects flash sales, samples the comment corpus, and
// assembles the final stream report.
type ReportService struct {
	streamRepo  repository.StreamRepository
	commentRepo repository.CommentRepository
	statRepo    repository.StatRepository
	analytics   *AnalyticsService
	publisher   ReportPublisher

	flashThreshold int
	sampleCap      int

	now func() time.Time
}

func NewReportService(
	streamRepo repository.StreamRepository,
	commentRepo repository.CommentRepository,
	statRepo repository.StatRepository,
	analytics *AnalyticsService,
	publisher ReportPublisher,
	flashThreshold, sampleCap int,
) *ReportService {
	if flashThreshold <= 0 {
		flashThreshold = 50
	}
	if sampleCap <= 0 {
		sampleCap = 500
	}
	return &ReportService{
		streamRepo:     streamRepo,
		commentRepo:    commentRepo,
		statRepo:       statRepo,
		analytics:      analytics,
		publisher:      publisher,
		flashThreshold: flashThreshold,
		sampleCap:      sampleCap,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// FlashSales returns comment texts repeated past the burst threshold, with
// the minute in which the burst peaked.
func (s *ReportService) FlashSales(ctx context.Context, streamID uint) ([]models.FlashSaleEntry, error) {
	if _, err := s.requireStream(ctx, streamID); err != nil {
		return nil, err
	}

	bursts, err := s.commentRepo.TextBursts(ctx, streamID, s.flashThreshold)
	if err != nil {
		return nil, err
	}

	entries := make([]models.FlashSaleEntry, 0, len(bursts))
	for _, burst := range bursts {
		stamps, err := s.commentRepo.TimestampsForText(ctx, streamID, burst.Text)
		if err != nil {
			return nil, err
		}
		entries = append(entries, models.FlashSaleEntry{
			Text:       burst.Text,
			Count:      burst.Count,
			FirstSeen:  burst.FirstSeen,
			LastSeen:   burst.LastSeen,
			PeakMinute: peakMinute(stamps),
		})
	}
	return entries, nil
}

func peakMinute(stamps []time.Time) time.Time {
	if len(stamps) == 0 {
		return time.Time{}
	}
	counts := map[time.Time]int{}
	for _, at := range stamps {
		counts[at.UTC().Truncate(time.Minute)]++
	}
	var best time.Time
	bestCount := -1
	for minute, count := range counts {
		if count > bestCount || (count == bestCount && minute.Before(best)) {
			best = minute
			bestCount = count
		}
	}
	return best
}

// SampleCorpus reduces a chronological comment corpus to at most limit
// entries: a fixed head and tail plus a deterministic random sample of the
// middle. Keeping both ends intact preserves the opening and closing of the
// broadcast, which carry the most context.
func SampleCorpus(comments []models.Comment, limit int, seed int64) []models.Comment {
	if limit <= 0 || len(comments) <= limit {
		return comments
	}

	edge := limit / 4
	if edge == 0 {
		edge = 1
	}
	middleQuota := limit - 2*edge

	head := comments[:edge]
	tail := comments[len(comments)-edge:]
	middle := comments[edge : len(comments)-edge]

	picked := make([]models.Comment, 0, limit)
	picked = append(picked, head...)

	if middleQuota > 0 && len(middle) > 0 {
		if len(middle) <= middleQuota {
			picked = append(picked, middle...)
		} else {
			rng := rand.New(rand.NewSource(seed))
			indexes := rng.Perm(len(middle))[:middleQuota]
			sort.Ints(indexes)
			for _, i := range indexes {
				picked = append(picked, middle[i])
			}
		}
	}

	picked = append(picked, tail...)
	return picked
}

func (s *ReportService) requireStream(ctx context.Context, streamID uint) (*models.Stream, error) {
	stream, err := s.streamRepo.GetStreamByID(ctx, streamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Stream", streamID)
		}
		return nil, err
	}
	return stream, nil
}

// AssembleReport composes every analytics section for the stream. Sections
// are best-effort: a failing source (order API down, rate limit) drops its
// section and is logged, never failing the whole report.
func (s *ReportService) AssembleReport(ctx context.Context, streamID uint) (*models.StreamReport, error) {
	stream, err := s.requireStream(ctx, streamID)
	if err != nil {
		return nil, err
	}

	report := &models.StreamReport{
		ReportID:    uuid.NewString(),
		StreamID:    stream.ID,
		RoomID:      stream.RoomID,
		GeneratedAt: s.now(),
		Stats: models.StatsSummary{
			ViewerCountPeak: stream.ViewerCountPeak,
			TotalLikes:      stream.TotalLikes,
			TotalComments:   stream.TotalComments,
			TotalGiftsValue: stream.TotalGiftsValue,
			StartedAt:       stream.StartedAt,
			EndedAt:         stream.EndedAt,
		},
	}
	if stream.StartedAt != nil && stream.EndedAt != nil {
		report.Stats.Duration = stream.EndedAt.Sub(*stream.StartedAt).Round(time.Second).String()
	}

	if stats, err := s.statRepo.GetStats(ctx, streamID); err != nil {
		s.logSectionFailure(ctx, streamID, "stat_series", err)
	} else {
		report.StatSeries = stats
	}

	if interest, err := s.analytics.ProductInterest(ctx, streamID); err != nil {
		s.logSectionFailure(ctx, streamID, "product_interest", err)
	} else {
		report.ProductInterest = interest
	}

	if flashSales, err := s.FlashSales(ctx, streamID); err != nil {
		s.logSectionFailure(ctx, streamID, "flash_sales", err)
	} else {
		report.FlashSales = flashSales
	}

	if sentiment, err := s.analytics.SentimentBreakdown(ctx, streamID); err != nil {
		s.logSectionFailure(ctx, streamID, "sentiment", err)
	} else {
		report.Sentiment = sentiment
	}

	if categories, err := s.analytics.CategoryBreakdown(ctx, streamID); err != nil {
		s.logSectionFailure(ctx, streamID, "categories", err)
	} else {
		report.Categories = categories
	}

	if gmv, err := s.analytics.GMVSeries(ctx, streamID); err != nil {
		s.logSectionFailure(ctx, streamID, "gmv", err)
	} else {
		report.GMV = gmv
	}

	if sampled, err := s.sampleComments(ctx, stream); err != nil {
		s.logSectionFailure(ctx, streamID, "sampled_comments", err)
	} else {
		report.SampledComments = sampled
	}

	observability.ReportAssembliesTotal.WithLabelValues("ok").Inc()
	return report, nil
}

// sampleComments builds the summarization corpus. Flash-flagged texts never
// enter it: a burst of scripted purchase triggers is signal for the flash-sale
// section, noise for qualitative summarization.
func (s *ReportService) sampleComments(ctx context.Context, stream *models.Stream) ([]models.Comment, error) {
	rows, err := s.commentRepo.GetCommentsChronological(ctx, stream.ID, 0, 0)
	if err != nil {
		return nil, err
	}

	bursts, err := s.commentRepo.TextBursts(ctx, stream.ID, s.flashThreshold)
	if err != nil {
		return nil, err
	}
	flagged := make(map[string]struct{}, len(bursts))
	for _, burst := range bursts {
		flagged[burst.Text] = struct{}{}
	}

	comments := make([]models.Comment, 0, len(rows))
	for _, row := range rows {
		if _, ok := flagged[row.Text]; ok {
			continue
		}
		comments = append(comments, *row)
	}
	// Seed by stream so a re-assembled report samples the same corpus.
	return SampleCorpus(comments, s.sampleCap, int64(stream.ID)), nil
}

func (s *ReportService) logSectionFailure(ctx context.Context, streamID uint, section string, err error) {
	observability.ReportAssembliesTotal.WithLabelValues("section_failed").Inc()
	observability.GlobalLogger.WarnContext(ctx, "report section failed, omitting",
		"stream_id", streamID,
		"section", section,
		"error", err.Error(),
	)
}

// SendReport assembles the report, publishes it to the notification sink,
// and marks the stream reported. The mark is a conditional update: a racing
// second caller gets SendAlreadySent and no duplicate publish side effects
// beyond the at-least-once publish that already happened.
func (s *ReportService) SendReport(ctx context.Context, streamID uint) (*models.StreamReport, SendOutcome, error) {
	stream, err := s.requireStream(ctx, streamID)
	if err != nil {
		return nil, "", err
	}
	if stream.ReportSentAt != nil {
		return nil, SendAlreadySent, nil
	}

	report, err := s.AssembleReport(ctx, streamID)
	if err != nil {
		return nil, "", err
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return nil, "", models.NewInternalError(fmt.Errorf("marshal report: %w", err))
	}

	if s.publisher != nil {
		if err := s.publisher.PublishReport(ctx, streamID, payload); err != nil {
			return nil, "", models.NewUpstreamError("notification sink", err)
		}
	}

	applied, err := s.streamRepo.MarkReportSent(ctx, streamID, s.now())
	if err != nil {
		return nil, "", err
	}
	if !applied {
		return report, SendAlreadySent, nil
	}

	_ = cache.SetJSON(ctx, cache.ReportKey(streamID), report, cache.ReportTTL)
	return report, SendDelivered, nil
}
