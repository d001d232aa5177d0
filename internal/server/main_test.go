package server

import (
	"testing"

	"streamlens/internal/config"
	"streamlens/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestServer(t *testing.T) (*fiber.App, *Server, *gorm.DB) {
	t.Helper()
	return setupTestServerWithFlags(t, "")
}

func setupTestServerWithFlags(t *testing.T, flags string) (*fiber.App, *Server, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Stream{},
		&models.StreamStat{},
		&models.Comment{},
		&models.SessionStream{},
		&models.Session{},
		&models.SessionProduct{},
		&models.SessionActivity{},
	))

	cfg := &config.Config{
		Port:               "0",
		JWTSecret:          "test-secret",
		Env:                "test",
		FeatureFlags:       flags,
		FlashSaleThreshold: 5,
		CorpusSampleCap:    50,
		IngestBuffer:       16,
		IngestWorkers:      1,
	}

	srv, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)

	app := fiber.New()
	return app, srv, db
}
