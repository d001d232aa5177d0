package repository

import (
	"context"
	"testing"
	"time"

	"streamlens/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestStatRepository_CreateStat_SQLShape(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewStatRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	t.Run("inserts new sample", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT count\(\*\) FROM "stream_stats"`).
			WithArgs(1, now).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`INSERT INTO "stream_stats"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectCommit()

		created, err := repo.CreateStat(ctx, &models.StreamStat{StreamID: 1, RecordedAt: now, ViewerCount: 42})
		assert.NoError(t, err)
		assert.True(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips duplicate sample without insert", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT count\(\*\) FROM "stream_stats"`).
			WithArgs(1, now).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectCommit()

		created, err := repo.CreateStat(ctx, &models.StreamStat{StreamID: 1, RecordedAt: now, ViewerCount: 42})
		assert.NoError(t, err)
		assert.False(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStatRepository_GetStats(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStatRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	for i, viewers := range []int{10, 25, 18} {
		_, err := repo.CreateStat(ctx, &models.StreamStat{
			StreamID: 1, RecordedAt: now.Add(time.Duration(i) * time.Minute), ViewerCount: viewers,
		})
		require.NoError(t, err)
	}

	stats, err := repo.GetStats(ctx, 1)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, 10, stats[0].ViewerCount)
	assert.Equal(t, 18, stats[2].ViewerCount)

	latest, err := repo.LatestStat(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 18, latest.ViewerCount)
}
