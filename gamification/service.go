package gamification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/utils"
)

const (
	EventPointsUpdated = "points_updated"
	EventLevelUp       = "level_up"

	// LeaderboardSize is how many users the public leaderboard shows.
	LeaderboardSize = 10
)

// Store persists one GamificationRecord per user.
type Store interface {
	Get(ctx context.Context, userID uint) (*models.GamificationRecord, error)
	GetOrCreate(ctx context.Context, userID uint) (*models.GamificationRecord, error)
	Save(ctx context.Context, rec *models.GamificationRecord) error
	// Update loads (or creates) the record, applies mutate and writes it back
	// when mutate reports a change. mutate may run more than once.
	Update(ctx context.Context, userID uint, mutate func(*models.GamificationRecord) (bool, error)) (*models.GamificationRecord, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// Notifier pushes events to a user's live sessions.
type Notifier interface {
	PublishToUser(userID uint, event string, payload any) error
}

// Service runs the gamification rules on top of a Store.
type Service struct {
	store    Store
	notifier Notifier
	rules    []Rule
	now      func() time.Time
	loc      *time.Location
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the timezone that decides calendar days for streaks.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithRules replaces the achievement table.
func WithRules(rules []Rule) Option {
	return func(s *Service) { s.rules = rules }
}

// NewService builds a Service. notifier may be nil, in which case nothing is pushed.
func NewService(store Store, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		store:    store,
		notifier: notifier,
		rules:    Rules(),
		now:      time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ActivityOutcome collects the results of RecordActivity.
type ActivityOutcome struct {
	Points          *PointsResult        `json:"points"`
	Streaks         *models.Streaks      `json:"streaks"`
	NewAchievements []models.Achievement `json:"newAchievements"`
}

// ChallengeInput describes a custom challenge.
type ChallengeInput struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Target      int        `json:"target"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     time.Time  `json:"endDate"`
}

// GetOrCreate returns the user's record, creating the default one if missing.
func (s *Service) GetOrCreate(ctx context.Context, userID uint) (*models.GamificationRecord, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	rec, err := s.store.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, storageErr("get", err)
	}
	return rec, nil
}

// Initialize seeds the record for a newly registered user.
func (s *Service) Initialize(ctx context.Context, userID uint) error {
	_, err := s.GetOrCreate(ctx, userID)
	return err
}

// UpdatePoints awards points for one activity and pushes points_updated,
// followed by level_up when the level changed.
func (s *Service) UpdatePoints(ctx context.Context, userID uint, activity string, data *ActivityData) (*PointsResult, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	c, err := validateActivity(activity, data)
	if err != nil {
		return nil, err
	}

	var res PointsResult
	rec, err := s.store.Update(ctx, userID, func(rec *models.GamificationRecord) (bool, error) {
		earned, leveled := applyPoints(rec, c, data)
		res = PointsResult{
			PointsEarned:   earned,
			Total:          rec.Points.Total(),
			Level:          rec.Level,
			LeveledUp:      leveled,
			ActivityPoints: rec.Points.Of(c),
		}
		return true, nil
	})
	if err != nil {
		return nil, storageErr("update points", err)
	}

	s.publish(userID, EventPointsUpdated, res)
	if res.LeveledUp {
		s.publish(userID, EventLevelUp, LevelUp{NewLevel: rec.Level, TotalPoints: res.Total})
	}
	return &res, nil
}

// UpdateStreak records activity in category for today.
func (s *Service) UpdateStreak(ctx context.Context, userID uint, category string) (*models.Streaks, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	c, ok := models.ParseCategory(category)
	if !ok {
		return nil, ErrInvalidCategory
	}
	today := civilDay(s.now(), s.loc)

	rec, err := s.store.Update(ctx, userID, func(rec *models.GamificationRecord) (bool, error) {
		before := rec.Streaks
		applyStreak(&rec.Streaks, c, today)
		return !sameStreaks(before, rec.Streaks), nil
	})
	if err != nil {
		return nil, storageErr("update streak", err)
	}
	streaks := rec.Streaks
	return &streaks, nil
}

// CheckAchievements unlocks every newly satisfied rule and returns only the new ones.
func (s *Service) CheckAchievements(ctx context.Context, userID uint) ([]models.Achievement, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	var unlocked []models.Achievement
	_, err := s.store.Update(ctx, userID, func(rec *models.GamificationRecord) (bool, error) {
		unlocked = unlockAchievements(rec, s.rules, s.now())
		return len(unlocked) > 0, nil
	})
	if err != nil {
		return nil, storageErr("check achievements", err)
	}
	return unlocked, nil
}

// AchievementCatalog lists every achievement with the user's progress.
func (s *Service) AchievementCatalog(ctx context.Context, userID uint) ([]models.Achievement, error) {
	rec, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return catalog(rec, s.rules), nil
}

// LogMood appends to the bounded mood log and returns it.
func (s *Service) LogMood(ctx context.Context, userID uint, mood string) ([]models.MoodEntry, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	m, ok := models.ParseMood(mood)
	if !ok {
		return nil, ErrInvalidMood
	}
	now := s.now()
	rec, err := s.store.Update(ctx, userID, func(rec *models.GamificationRecord) (bool, error) {
		rec.MoodLog = appendMood(rec.MoodLog, m, now)
		return true, nil
	})
	if err != nil {
		return nil, storageErr("log mood", err)
	}
	return rec.MoodLog, nil
}

// RecordActivity runs points, streak and achievements in that order for one activity.
func (s *Service) RecordActivity(ctx context.Context, userID uint, activity string, data *ActivityData) (*ActivityOutcome, error) {
	points, err := s.UpdatePoints(ctx, userID, activity, data)
	if err != nil {
		return nil, err
	}
	streaks, err := s.UpdateStreak(ctx, userID, activity)
	if err != nil {
		return nil, err
	}
	unlocked, err := s.CheckAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ActivityOutcome{Points: points, Streaks: streaks, NewAchievements: unlocked}, nil
}

// Leaderboard returns the top users by total points.
func (s *Service) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	rows, err := s.store.Leaderboard(ctx, LeaderboardSize)
	if err != nil {
		return nil, storageErr("leaderboard", err)
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

// AddChallenge stores a custom challenge. Challenges are not evaluated.
func (s *Service) AddChallenge(ctx context.Context, userID uint, in ChallengeInput) ([]models.Challenge, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	ch, err := s.buildChallenge(in)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.Update(ctx, userID, func(rec *models.GamificationRecord) (bool, error) {
		rec.Challenges = append(rec.Challenges, ch)
		return true, nil
	})
	if err != nil {
		return nil, storageErr("add challenge", err)
	}
	return rec.Challenges, nil
}

func (s *Service) buildChallenge(in ChallengeInput) (models.Challenge, error) {
	name := utils.SanitizeText(in.Name)
	if name == "" {
		return models.Challenge{}, ErrMissingFields
	}
	c, ok := models.ParseCategory(in.Category)
	if !ok {
		return models.Challenge{}, ErrInvalidCategory
	}
	start := s.now().UTC()
	if in.StartDate != nil {
		start = in.StartDate.UTC()
	}
	if in.Target <= 0 || !in.EndDate.After(start) {
		return models.Challenge{}, ErrInvalidChallenge
	}
	return models.Challenge{
		ID:          uuid.NewString(),
		Name:        name,
		Description: utils.Sanitize(in.Description),
		Category:    c,
		Target:      in.Target,
		StartDate:   start,
		EndDate:     in.EndDate.UTC(),
	}, nil
}

// publish is fire-and-forget: a failing or panicking notifier is logged and ignored.
func (s *Service) publish(userID uint, event string, payload any) {
	if s.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			utils.Sugar.Errorf("notify user=%d event=%s panic: %v", userID, event, r)
		}
	}()
	if err := s.notifier.PublishToUser(userID, event, payload); err != nil {
		utils.Sugar.Debugf("notify user=%d event=%s dropped: %v", userID, event, err)
	}
}

func sameStreaks(a, b models.Streaks) bool {
	return a.WorkoutStreak == b.WorkoutStreak &&
		a.MentalStreak == b.MentalStreak &&
		a.NutritionStreak == b.NutritionStreak &&
		a.CurrentStreak == b.CurrentStreak &&
		a.BestStreak == b.BestStreak &&
		sameDay(a.LastWorkoutDate, b.LastWorkoutDate) &&
		sameDay(a.LastMentalDate, b.LastMentalDate) &&
		sameDay(a.LastNutritionDate, b.LastNutritionDate)
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
