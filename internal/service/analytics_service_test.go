package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"streamlens/internal/models"
	"streamlens/internal/orders"
	"streamlens/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsService_GMVSeries(t *testing.T) {
	t.Parallel()

	streamWithWindow := func(start, end time.Time) *streamRepoStub {
		streams := noopStreamRepo()
		streams.getByIDFn = func(_ context.Context, id uint) (*models.Stream, error) {
			return &models.Stream{ID: id, RoomID: "room-1", Status: models.StreamEnded, StartedAt: &start, EndedAt: &end}, nil
		}
		return streams
	}

	t.Run("buckets orders into utc hours", func(t *testing.T) {
		t.Parallel()
		start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		end := start.Add(3 * time.Hour)
		lister := &orderListerStub{listFn: func(_ context.Context, from, to time.Time) ([]orders.Order, error) {
			assert.Equal(t, start, from)
			assert.Equal(t, end, to)
			return []orders.Order{
				{ID: "o1", Status: "completed", Amount: "10.00", CreatedAt: start.Add(5 * time.Minute)},
				{ID: "o2", Status: "completed", Amount: "5.00", CreatedAt: start.Add(55 * time.Minute)},
				{ID: "o3", Status: "completed", Amount: "2.50", CreatedAt: start.Add(2*time.Hour + 30*time.Minute)},
			}, nil
		}}
		svc := NewAnalyticsService(streamWithWindow(start, end), noopCommentRepo(), lister, 50)

		series, err := svc.GMVSeries(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, series, 2)
		assert.Equal(t, models.GMVBucket{Hour: start, OrderCount: 2, AmountCents: 1500}, series[0])
		assert.Equal(t, models.GMVBucket{Hour: start.Add(2 * time.Hour), OrderCount: 1, AmountCents: 250}, series[1])
	})

	t.Run("cancelled orders are dropped", func(t *testing.T) {
		t.Parallel()
		start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		lister := &orderListerStub{listFn: func(_ context.Context, _, _ time.Time) ([]orders.Order, error) {
			return []orders.Order{
				{ID: "o1", Status: orders.StatusCancelled, Amount: "99.99", CreatedAt: start.Add(time.Minute)},
				{ID: "o2", Status: "completed", Amount: "1.00", CreatedAt: start.Add(time.Minute)},
			}, nil
		}}
		svc := NewAnalyticsService(streamWithWindow(start, start.Add(time.Hour)), noopCommentRepo(), lister, 50)

		series, err := svc.GMVSeries(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, series, 1)
		assert.Equal(t, 1, series[0].OrderCount)
		assert.Equal(t, int64(100), series[0].AmountCents)
	})

	t.Run("unparseable amount contributes zero", func(t *testing.T) {
		t.Parallel()
		start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		lister := &orderListerStub{listFn: func(_ context.Context, _, _ time.Time) ([]orders.Order, error) {
			return []orders.Order{
				{ID: "o1", Status: "completed", Amount: "n/a", CreatedAt: start.Add(time.Minute)},
				{ID: "o2", Status: "completed", Amount: "2.25", CreatedAt: start.Add(time.Minute)},
			}, nil
		}}
		svc := NewAnalyticsService(streamWithWindow(start, start.Add(time.Hour)), noopCommentRepo(), lister, 50)

		series, err := svc.GMVSeries(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, series, 1)
		assert.Equal(t, 2, series[0].OrderCount)
		assert.Equal(t, int64(225), series[0].AmountCents)
	})

	t.Run("stream without window yields empty series", func(t *testing.T) {
		t.Parallel()
		streams := noopStreamRepo()
		streams.getByIDFn = func(_ context.Context, id uint) (*models.Stream, error) {
			return &models.Stream{ID: id, RoomID: "room-1", Status: models.StreamFailed}, nil
		}
		svc := NewAnalyticsService(streams, noopCommentRepo(), nil, 50)

		series, err := svc.GMVSeries(context.Background(), 1)
		require.NoError(t, err)
		assert.Empty(t, series)
	})

	t.Run("missing order client is upstream error", func(t *testing.T) {
		t.Parallel()
		start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		svc := NewAnalyticsService(streamWithWindow(start, start.Add(time.Hour)), noopCommentRepo(), nil, 50)

		_, err := svc.GMVSeries(context.Background(), 1)
		require.Error(t, err)
		assert.True(t, models.IsCode(err, "UPSTREAM_ERROR"))
	})

	t.Run("order client failure propagates", func(t *testing.T) {
		t.Parallel()
		start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		lister := &orderListerStub{listFn: func(_ context.Context, _, _ time.Time) ([]orders.Order, error) {
			return nil, models.NewRateLimitedError("order service")
		}}
		svc := NewAnalyticsService(streamWithWindow(start, start.Add(time.Hour)), noopCommentRepo(), lister, 50)

		_, err := svc.GMVSeries(context.Background(), 1)
		require.Error(t, err)
		assert.True(t, models.IsCode(err, "RATE_LIMITED"))
	})
}

func TestAnalyticsService_Breakdowns(t *testing.T) {
	t.Parallel()

	t.Run("percentages are rounded", func(t *testing.T) {
		t.Parallel()
		comments := noopCommentRepo()
		comments.sentimentCountsFn = func(_ context.Context, _ uint, _ int) ([]repository.LabelCount, error) {
			return []repository.LabelCount{
				{Label: "positive", Count: 2},
				{Label: "neutral", Count: 1},
			}, nil
		}
		svc := NewAnalyticsService(noopStreamRepo(), comments, nil, 50)

		breakdown, err := svc.SentimentBreakdown(context.Background(), 1)
		require.NoError(t, err)
		assert.False(t, breakdown.NoData)
		assert.Equal(t, int64(3), breakdown.Total)
		require.Len(t, breakdown.Entries, 2)
		assert.Equal(t, 67, breakdown.Entries[0].Percent)
		assert.Equal(t, 33, breakdown.Entries[1].Percent)
	})

	t.Run("burst threshold reaches the repository", func(t *testing.T) {
		t.Parallel()
		comments := noopCommentRepo()
		comments.sentimentCountsFn = func(_ context.Context, _ uint, threshold int) ([]repository.LabelCount, error) {
			assert.Equal(t, 7, threshold)
			return nil, nil
		}
		svc := NewAnalyticsService(noopStreamRepo(), comments, nil, 7)

		_, err := svc.SentimentBreakdown(context.Background(), 1)
		require.NoError(t, err)
	})

	t.Run("no classified comments yields no data", func(t *testing.T) {
		t.Parallel()
		svc := NewAnalyticsService(noopStreamRepo(), noopCommentRepo(), nil, 50)

		breakdown, err := svc.CategoryBreakdown(context.Background(), 1)
		require.NoError(t, err)
		assert.True(t, breakdown.NoData)
		assert.Zero(t, breakdown.Total)
		assert.Empty(t, breakdown.Entries)
	})

	t.Run("repository failure propagates", func(t *testing.T) {
		t.Parallel()
		comments := noopCommentRepo()
		comments.categoryCountsFn = func(_ context.Context, _ uint, _ int) ([]repository.LabelCount, error) {
			return nil, errors.New("db gone")
		}
		svc := NewAnalyticsService(noopStreamRepo(), comments, nil, 50)

		_, err := svc.CategoryBreakdown(context.Background(), 1)
		require.Error(t, err)
	})
}

func TestParseAmountCents(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		amount string
		want   int64
	}{
		{"dollars and cents", "12.50", 1250},
		{"whole dollars", "7", 700},
		{"single fraction digit", "3.5", 350},
		{"extra precision truncated", "1.999", 199},
		{"negative refund", "-2.25", -225},
		{"zero", "0.00", 0},
		{"empty", "", 0},
		{"currency symbol rejected", "$5.00", 0},
		{"thousands separator rejected", "1,000.00", 0},
		{"double dot rejected", "1.2.3", 0},
		{"bare dot rejected", ".", 0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, parseAmountCents(tc.amount))
		})
	}
}
