package seed

import (
	"fmt"
	"math/rand"
	"time"

	"streamlens/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db  *gorm.DB
	rng *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:  db,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateStream persists a capture. Live streams have an open window; ended
// ones ran one to four hours at some point in the last week.
func (f *Factory) CreateStream(live bool) (*models.Stream, error) {
	daysBack := f.rng.Intn(7)
	start := time.Now().UTC().
		Add(-time.Duration(daysBack)*24*time.Hour).
		Add(-time.Duration(f.rng.Intn(12)) * time.Hour).
		Truncate(time.Minute)

	stream := &models.Stream{
		RoomID:    fmt.Sprintf("74%010d", f.rng.Int63n(1e10)),
		UniqueID:  "@" + gofakeit.Username(),
		Status:    models.StreamCapturing,
		StartedAt: &start,
	}
	if !live {
		end := start.Add(time.Duration(1+f.rng.Intn(3)) * time.Hour)
		stream.Status = models.StreamEnded
		stream.EndedAt = &end
	}

	if err := f.db.Create(stream).Error; err != nil {
		return nil, err
	}
	return stream, nil
}

// CreateSessionWithProducts persists a commerce session mirror with
// positioned products and an activity row inside the stream's window.
func (f *Factory) CreateSessionWithProducts(products int, stream *models.Stream) (*models.Session, error) {
	session := &models.Session{
		Title: gofakeit.ProductName() + " Live Sale",
	}
	if err := f.db.Create(session).Error; err != nil {
		return nil, err
	}

	for pos := 1; pos <= products; pos++ {
		product := &models.SessionProduct{
			SessionID:   session.ID,
			Position:    pos,
			ProductID:   uint(f.rng.Intn(900000) + 100000),
			ProductName: gofakeit.ProductName(),
		}
		if err := f.db.Create(product).Error; err != nil {
			return nil, err
		}
	}

	occurredAt := stream.StartedAt.Add(time.Duration(10+f.rng.Intn(30)) * time.Minute)
	activity := &models.SessionActivity{
		SessionID:  session.ID,
		OccurredAt: occurredAt,
		UpdatedAt:  occurredAt,
	}
	if err := f.db.Create(activity).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// LinkSession associates the session with the stream as a manual link.
func (f *Factory) LinkSession(stream *models.Stream, session *models.Session) error {
	return f.db.Create(&models.SessionStream{
		StreamID:  stream.ID,
		SessionID: session.ID,
		LinkedAt:  time.Now().UTC(),
		LinkedBy:  models.LinkedByManual,
	}).Error
}

var commentTemplates = []string{
	"want #%d please",
	"is #%d still available?",
	"how much is number %d",
	"#%d looks great",
	"link %d",
}

var sentiments = []string{"positive", "neutral", "negative"}
var categories = []string{"price", "shipping", "quality", "praise"}

// CreateComments persists a comment corpus for the stream: product-number
// mentions referencing the session's positions, chatter, and one scripted
// flash-sale burst.
func (f *Factory) CreateComments(stream *models.Stream, session *models.Session, count int) error {
	var positions []int
	if err := f.db.Model(&models.SessionProduct{}).
		Where("session_id = ?", session.ID).
		Pluck("position", &positions).Error; err != nil {
		return err
	}

	window := 2 * time.Hour
	if stream.EndedAt != nil {
		window = stream.EndedAt.Sub(*stream.StartedAt)
	}

	batch := make([]models.Comment, 0, count)
	for i := 0; i < count; i++ {
		at := stream.StartedAt.Add(time.Duration(f.rng.Int63n(int64(window))))
		comment := models.Comment{
			StreamID:     stream.ID,
			TikTokUserID: fmt.Sprintf("user%06d", f.rng.Intn(40000)),
			Nickname:     gofakeit.Username(),
			CommentedAt:  at,
		}

		switch {
		case f.rng.Float64() < 0.2 && len(positions) > 0:
			pos := positions[f.rng.Intn(len(positions))]
			comment.Text = fmt.Sprintf(commentTemplates[f.rng.Intn(len(commentTemplates))], pos)
		default:
			comment.Text = gofakeit.Sentence(3 + f.rng.Intn(7))
		}

		if f.rng.Float64() < 0.6 {
			sentiment := sentiments[f.rng.Intn(len(sentiments))]
			category := categories[f.rng.Intn(len(categories))]
			classifiedAt := at.Add(time.Minute)
			comment.Sentiment = &sentiment
			comment.Category = &category
			comment.ClassifiedAt = &classifiedAt
		}

		batch = append(batch, comment)
	}

	// Flash-sale burst: the same scripted phrase repeated within one minute.
	burstStart := stream.StartedAt.Add(window / 2)
	flash := models.CategoryFlashSale
	for i := 0; i < 60; i++ {
		at := burstStart.Add(time.Duration(f.rng.Intn(60)) * time.Second)
		batch = append(batch, models.Comment{
			StreamID:     stream.ID,
			TikTokUserID: fmt.Sprintf("burst%04d", i),
			Nickname:     gofakeit.Username(),
			Text:         "BUY NOW 50% OFF",
			CommentedAt:  at,
			Category:     &flash,
			ClassifiedAt: &at,
		})
	}

	return f.db.CreateInBatches(batch, 200).Error
}

// CreateStatSeries persists a metric sample every five minutes of the
// stream's window and folds the maxima into the stream counters.
func (f *Factory) CreateStatSeries(stream *models.Stream) error {
	window := 2 * time.Hour
	if stream.EndedAt != nil {
		window = stream.EndedAt.Sub(*stream.StartedAt)
	}

	viewers := 50 + f.rng.Intn(200)
	var likes int64
	var gifts int64
	peak := viewers

	for offset := time.Duration(0); offset < window; offset += 5 * time.Minute {
		viewers += f.rng.Intn(41) - 18
		if viewers < 10 {
			viewers = 10
		}
		if viewers > peak {
			peak = viewers
		}
		likes += int64(f.rng.Intn(500))
		gifts += int64(f.rng.Intn(30))

		stat := &models.StreamStat{
			StreamID:    stream.ID,
			RecordedAt:  stream.StartedAt.Add(offset),
			ViewerCount: viewers,
			LikeCount:   likes,
			GiftsValue:  gifts,
		}
		if err := f.db.Create(stat).Error; err != nil {
			return err
		}
	}

	var comments int64
	if err := f.db.Model(&models.Comment{}).Where("stream_id = ?", stream.ID).Count(&comments).Error; err != nil {
		return err
	}

	return f.db.Model(&models.Stream{}).Where("id = ?", stream.ID).Updates(map[string]interface{}{
		"viewer_count_peak": peak,
		"total_likes":       likes,
		"total_gifts_value": gifts,
		"total_comments":    comments,
	}).Error
}
