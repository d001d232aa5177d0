package repository

import (
	"testing"

	"streamlens/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Stream{},
		&models.StreamStat{},
		&models.Comment{},
		&models.SessionStream{},
		&models.Session{},
		&models.SessionProduct{},
		&models.SessionActivity{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}
