// Package seed provides helpers to create demo broadcast data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"

	"streamlens/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumStreams         int
	CommentsPerStream  int
	SessionsPerStream  int
	ProductsPerSession int
	ShouldClean        bool
}

// Seeder populates the database with demo captures, sessions, and comments.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	opts    Options
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.NumStreams <= 0 {
		opts.NumStreams = 5
	}
	if opts.CommentsPerStream <= 0 {
		opts.CommentsPerStream = 400
	}
	if opts.SessionsPerStream <= 0 {
		opts.SessionsPerStream = 1
	}
	if opts.ProductsPerSession <= 0 {
		opts.ProductsPerSession = 8
	}
	return &Seeder{db: db, factory: NewFactory(db), opts: opts}
}

// ClearAll removes every seeded row. Order respects foreign keys.
func (s *Seeder) ClearAll() error {
	tables := []interface{}{
		&models.Comment{},
		&models.StreamStat{},
		&models.SessionStream{},
		&models.SessionActivity{},
		&models.SessionProduct{},
		&models.Session{},
		&models.Stream{},
	}
	for _, table := range tables {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(table).Error; err != nil {
			return fmt.Errorf("clearing %T: %w", table, err)
		}
	}
	log.Println("Cleared existing seed data")
	return nil
}

// SeedDemo creates the demo dataset: ended captures with comment corpora,
// linked sessions with products, stat series, and one capture left running.
func (s *Seeder) SeedDemo() error {
	for i := 0; i < s.opts.NumStreams; i++ {
		// The last stream stays live so the dashboard has something moving.
		live := i == s.opts.NumStreams-1

		stream, err := s.factory.CreateStream(live)
		if err != nil {
			return fmt.Errorf("creating stream: %w", err)
		}

		var session *models.Session
		for j := 0; j < s.opts.SessionsPerStream; j++ {
			session, err = s.factory.CreateSessionWithProducts(s.opts.ProductsPerSession, stream)
			if err != nil {
				return fmt.Errorf("creating session: %w", err)
			}
			if err := s.factory.LinkSession(stream, session); err != nil {
				return fmt.Errorf("linking session: %w", err)
			}
		}

		if err := s.factory.CreateComments(stream, session, s.opts.CommentsPerStream); err != nil {
			return fmt.Errorf("creating comments: %w", err)
		}

		if err := s.factory.CreateStatSeries(stream); err != nil {
			return fmt.Errorf("creating stats: %w", err)
		}

		log.Printf("Seeded stream %d (room %s, live=%v)", stream.ID, stream.RoomID, live)
	}
	return nil
}
