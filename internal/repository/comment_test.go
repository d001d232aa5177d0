package repository

import (
	"context"
	"testing"
	"time"

	"streamlens/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCommentRepository_CreateComment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	created, err := repo.CreateComment(ctx, &models.Comment{
		StreamID: 1, TikTokUserID: "u1", Nickname: "Ann", Text: "#3 please", CommentedAt: now,
	})
	require.NoError(t, err)
	assert.True(t, created)

	// Redelivered copy is dropped.
	created, err = repo.CreateComment(ctx, &models.Comment{
		StreamID: 1, TikTokUserID: "u1", Nickname: "Ann", Text: "#3 please", CommentedAt: now,
	})
	require.NoError(t, err)
	assert.False(t, created)

	// Same viewer, different timestamp is a new comment.
	created, err = repo.CreateComment(ctx, &models.Comment{
		StreamID: 1, TikTokUserID: "u1", Nickname: "Ann", Text: "#3 please", CommentedAt: now.Add(time.Second),
	})
	require.NoError(t, err)
	assert.True(t, created)

	count, err := repo.CountComments(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestCommentRepository_ParsePassQueries(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	// Two sessions with one product each, linked history on one stream.
	require.NoError(t, db.Create(&models.SessionProduct{ID: 11, SessionID: 1, Position: 1, ProductID: 101, ProductName: "Serum"}).Error)
	require.NoError(t, db.Create(&models.SessionProduct{ID: 22, SessionID: 2, Position: 1, ProductID: 201, ProductName: "Cream"}).Error)

	seed := func(user string, at time.Time, productID *uint) *models.Comment {
		c := &models.Comment{StreamID: 1, TikTokUserID: user, Text: "#1", CommentedAt: at, SessionProductID: productID}
		if productID != nil {
			n := 1
			c.ParsedProductNumber = &n
		}
		_, err := repo.CreateComment(ctx, c)
		require.NoError(t, err)
		return c
	}

	p11 := uint(11)
	p22 := uint(22)
	seed("u1", now, &p11)
	seed("u2", now.Add(time.Second), &p22)
	unassigned := seed("u3", now.Add(2*time.Second), nil)

	t.Run("ListUnassigned skips settled comments", func(t *testing.T) {
		pending, err := repo.ListUnassigned(ctx, 1, 0)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, unassigned.ID, pending[0].ID)
	})

	t.Run("SetParseResult assigns number and product", func(t *testing.T) {
		require.NoError(t, repo.SetParseResult(ctx, unassigned.ID, 1, &p11))

		pending, err := repo.ListUnassigned(ctx, 1, 0)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("ClearParseResults is scoped to one session", func(t *testing.T) {
		cleared, err := repo.ClearParseResults(ctx, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), cleared)

		// The session 2 assignment survives.
		pending, err := repo.ListUnassigned(ctx, 1, 0)
		require.NoError(t, err)
		assert.Len(t, pending, 2)

		var kept models.Comment
		require.NoError(t, db.Where("tiktok_user_id = ?", "u2").First(&kept).Error)
		require.NotNil(t, kept.SessionProductID)
		assert.Equal(t, p22, *kept.SessionProductID)
	})
}

func TestCommentRepository_ProductInterest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	require.NoError(t, db.Create(&models.SessionProduct{ID: 11, SessionID: 1, Position: 1, ProductID: 101, ProductName: "Serum"}).Error)
	require.NoError(t, db.Create(&models.SessionProduct{ID: 12, SessionID: 1, Position: 2, ProductID: 102, ProductName: "Cream"}).Error)

	p11, p12 := uint(11), uint(12)
	for i, pid := range []*uint{&p12, &p12, &p12, &p11, nil} {
		_, err := repo.CreateComment(ctx, &models.Comment{
			StreamID: 1, TikTokUserID: "u", Text: "x",
			CommentedAt:      now.Add(time.Duration(i) * time.Second),
			SessionProductID: pid,
		})
		require.NoError(t, err)
	}

	interest, err := repo.ProductInterest(ctx, 1)
	require.NoError(t, err)
	require.Len(t, interest, 2)
	assert.Equal(t, "Cream", interest[0].ProductName)
	assert.Equal(t, int64(3), interest[0].CommentCount)
	assert.Equal(t, 2, interest[0].Position)
	assert.Equal(t, "Serum", interest[1].ProductName)
	assert.Equal(t, int64(1), interest[1].CommentCount)
}

func TestCommentRepository_Breakdowns(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	seed := func(i int, text string, sentiment, category *string) {
		_, err := repo.CreateComment(ctx, &models.Comment{
			StreamID: 1, TikTokUserID: "u", Text: text,
			CommentedAt: now.Add(time.Duration(i) * time.Second),
			Sentiment:   sentiment, Category: category,
		})
		require.NoError(t, err)
	}

	seed(0, "how much is this", strPtr("positive"), strPtr("product_question"))
	seed(1, "so pretty", strPtr("positive"), strPtr("praise"))
	seed(2, "took forever to ship", strPtr("negative"), strPtr("praise"))
	// Flash-sale spam is excluded from both breakdowns.
	seed(3, "grab it now", strPtr("positive"), strPtr(models.CategoryFlashSale))
	// Unclassified comment contributes to neither.
	seed(4, "hello", nil, nil)
	// A burst-flagged text stays out even when the classifier labeled it.
	for i := 0; i < 3; i++ {
		seed(10+i, "BUY NOW 50% OFF", strPtr("positive"), strPtr("praise"))
	}

	sentiments, err := repo.SentimentCounts(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, sentiments, 2)
	assert.Equal(t, "positive", sentiments[0].Label)
	assert.Equal(t, int64(2), sentiments[0].Count)

	categories, err := repo.CategoryCounts(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "praise", categories[0].Label)
	assert.Equal(t, int64(2), categories[0].Count)
}

func TestCommentRepository_TextBursts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := repo.CreateComment(ctx, &models.Comment{
			StreamID: 1, TikTokUserID: "burst", Text: "BUY NOW",
			CommentedAt: now.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}
	_, err := repo.CreateComment(ctx, &models.Comment{
		StreamID: 1, TikTokUserID: "calm", Text: "hello", CommentedAt: now,
	})
	require.NoError(t, err)

	bursts, err := repo.TextBursts(ctx, 1, 5)
	require.NoError(t, err)
	require.Len(t, bursts, 1)
	assert.Equal(t, "BUY NOW", bursts[0].Text)
	assert.Equal(t, int64(5), bursts[0].Count)

	stamps, err := repo.TimestampsForText(ctx, 1, "BUY NOW")
	require.NoError(t, err)
	assert.Len(t, stamps, 5)
}
