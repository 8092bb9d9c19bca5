package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/fitquest/gamification"
	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/utils"
)

var (
	// ErrNotFound is returned by Get when the user has no record yet.
	ErrNotFound = errors.New("gamification record not found")
	// ErrVersionConflict means another writer saved the record first.
	ErrVersionConflict = errors.New("gamification record version conflict")
)

const defaultRetries = 5

// GormStore keeps gamification records in a SQL table through gorm.
// Writes are guarded by the record's version column.
type GormStore struct {
	db      *gorm.DB
	retries int
	now     func() time.Time
}

// Option configures a GormStore.
type Option func(*GormStore)

// WithRetries sets how many times Update reloads after a version conflict.
func WithRetries(n int) Option {
	return func(s *GormStore) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithClock sets the clock used to stamp newly created records.
func WithClock(now func() time.Time) Option {
	return func(s *GormStore) { s.now = now }
}

// NewGormStore wraps db.
func NewGormStore(db *gorm.DB, opts ...Option) *GormStore {
	s := &GormStore{db: db, retries: defaultRetries, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get loads the user's record.
func (s *GormStore) Get(ctx context.Context, userID uint) (*models.GamificationRecord, error) {
	var rec models.GamificationRecord
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	normalize(&rec)
	return &rec, nil
}

// GetOrCreate returns the existing record or inserts the default one.
// Concurrent creators race on the unique user_id index; the loser reads the winner's row.
func (s *GormStore) GetOrCreate(ctx context.Context, userID uint) (*models.GamificationRecord, error) {
	rec, err := s.Get(ctx, userID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	seed := gamification.DefaultRecord(userID, s.now())
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(seed).Error
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	return s.Get(ctx, userID)
}

// Save writes the whole record if nobody saved it since it was loaded.
func (s *GormStore) Save(ctx context.Context, rec *models.GamificationRecord) error {
	if rec.ID == 0 {
		return errors.New("save: record was never loaded")
	}
	prev := rec.Version
	rec.Version = prev + 1

	res := s.db.WithContext(ctx).Model(rec).
		Where("version = ?", prev).
		Select("*").Omit("CreatedAt").
		Updates(rec)
	if res.Error != nil {
		rec.Version = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		rec.Version = prev
		return ErrVersionConflict
	}
	return nil
}

// Update runs a read-modify-write cycle, retrying on version conflicts.
func (s *GormStore) Update(ctx context.Context, userID uint, mutate func(*models.GamificationRecord) (bool, error)) (*models.GamificationRecord, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		rec, err := s.GetOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}
		changed, err := mutate(rec)
		if err != nil {
			return nil, err
		}
		if !changed {
			return rec, nil
		}
		err = s.Save(ctx, rec)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
		utils.Sugar.Debugf("record update conflict user=%d attempt=%d", userID, attempt+1)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("update user=%d after %d attempts: %w", userID, s.retries+1, lastErr)
}

// Leaderboard returns the top users by total points, ties broken by user id.
func (s *GormStore) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows := []models.LeaderboardEntry{}
	err := s.db.WithContext(ctx).
		Table("gamification_records AS g").
		Select("g.user_id AS user_id, COALESCE(u.username, '') AS username, " +
			"(g.points_workout + g.points_mental + g.points_nutrition) AS total_points, g.level AS level").
		Joins("LEFT JOIN users u ON u.id = g.user_id AND u.deleted_at IS NULL").
		Order("total_points DESC").
		Order("g.user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// normalize replaces JSON nulls with empty lists so clients always see arrays.
func normalize(rec *models.GamificationRecord) {
	if rec.Achievements == nil {
		rec.Achievements = []models.Achievement{}
	}
	if rec.Challenges == nil {
		rec.Challenges = []models.Challenge{}
	}
	if rec.MoodLog == nil {
		rec.MoodLog = []models.MoodEntry{}
	}
}
