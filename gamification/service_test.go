package gamification_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/fitquest/gamification"
	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/store"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type event struct {
	UserID  uint
	Name    string
	Payload any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event
}

func (n *recordingNotifier) PublishToUser(userID uint, name string, payload any) error {
	n.mu.Lock()
	n.events = append(n.events, event{userID, name, payload})
	n.mu.Unlock()
	return nil
}

func (n *recordingNotifier) names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Name)
	}
	return out
}

type failingNotifier struct{}

func (failingNotifier) PublishToUser(uint, string, any) error {
	return errors.New("backplane unreachable")
}

type panickingNotifier struct{}

func (panickingNotifier) PublishToUser(uint, string, any) error {
	panic("socket closed")
}

type fixture struct {
	svc      *gamification.Service
	store    *store.GormStore
	db       *gorm.DB
	clock    *clock
	notifier *recordingNotifier
}

func newFixture(t *testing.T, notifier gamification.Notifier) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	c := &clock{now: time.Date(2024, 6, 3, 8, 30, 0, 0, time.UTC)}
	rec := &recordingNotifier{}
	if notifier == nil {
		notifier = rec
	}
	st := store.NewGormStore(db, store.WithClock(c.Now), store.WithRetries(50))
	svc := gamification.NewService(st, notifier,
		gamification.WithClock(c.Now),
		gamification.WithLocation(time.UTC),
	)
	return &fixture{svc: svc, store: st, db: db, clock: c, notifier: rec}
}

func fp(v float64) *float64 { return &v }

func workout(d, c float64) *gamification.ActivityData {
	return &gamification.ActivityData{Duration: fp(d), CaloriesBurned: fp(c)}
}

const day = 24 * time.Hour

func TestGetOrCreateDefaults(t *testing.T) {
	fx := newFixture(t, nil)
	rec, err := fx.svc.GetOrCreate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Level)
	assert.Empty(t, rec.Achievements)
	require.Len(t, rec.Challenges, 1)
	assert.Equal(t, "Welcome Challenge", rec.Challenges[0].Name)
}

func TestUnauthenticatedRejected(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	_, err := fx.svc.GetOrCreate(ctx, 0)
	assert.ErrorIs(t, err, gamification.ErrUnauthenticated)
	_, err = fx.svc.UpdatePoints(ctx, 0, "mental", &gamification.ActivityData{})
	assert.ErrorIs(t, err, gamification.ErrUnauthenticated)
	_, err = fx.svc.UpdateStreak(ctx, 0, "mental")
	assert.ErrorIs(t, err, gamification.ErrUnauthenticated)
	_, err = fx.svc.LogMood(ctx, 0, "happy")
	assert.ErrorIs(t, err, gamification.ErrUnauthenticated)
	_, err = fx.svc.CheckAchievements(ctx, 0)
	assert.ErrorIs(t, err, gamification.ErrUnauthenticated)
}

func TestValidationFailsBeforeStorage(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	_, err := fx.svc.UpdatePoints(ctx, 1, "workout", &gamification.ActivityData{Duration: fp(30)})
	assert.ErrorIs(t, err, gamification.ErrInvalidWorkoutData)
	_, err = fx.svc.UpdatePoints(ctx, 1, "dance", &gamification.ActivityData{})
	assert.ErrorIs(t, err, gamification.ErrInvalidActivity)
	_, err = fx.svc.UpdateStreak(ctx, 1, "sleep")
	assert.ErrorIs(t, err, gamification.ErrInvalidCategory)
	_, err = fx.svc.LogMood(ctx, 1, "ecstatic")
	assert.ErrorIs(t, err, gamification.ErrInvalidMood)

	_, err = fx.store.Get(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, fx.notifier.names())
}

func TestWorkoutPointsAndEvent(t *testing.T) {
	fx := newFixture(t, nil)
	res, err := fx.svc.UpdatePoints(context.Background(), 1, "workout", workout(50, 300))
	require.NoError(t, err)
	assert.Equal(t, 8, res.PointsEarned)
	assert.Equal(t, 8, res.Total)
	assert.Equal(t, 8, res.ActivityPoints)
	assert.Equal(t, 1, res.Level)
	assert.False(t, res.LeveledUp)

	require.Equal(t, []string{gamification.EventPointsUpdated}, fx.notifier.names())
	assert.Equal(t, uint(1), fx.notifier.events[0].UserID)
	assert.Equal(t, *res, fx.notifier.events[0].Payload)

	rec, err := fx.store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 50.0, rec.Stats.TotalWorkoutTime)
	assert.Equal(t, 300.0, rec.Stats.TotalCaloriesBurned)
}

func TestNutritionBalanceBonus(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	res, err := fx.svc.UpdatePoints(ctx, 1, "nutrition", &gamification.ActivityData{
		Macronutrients: &gamification.Macronutrients{Protein: 25, Carbohydrates: 40, Fats: 25},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, res.PointsEarned)

	res, err = fx.svc.UpdatePoints(ctx, 1, "nutrition", &gamification.ActivityData{
		Macronutrients: &gamification.Macronutrients{Protein: 5, Carbohydrates: 90, Fats: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.PointsEarned)
	assert.Equal(t, 15, res.ActivityPoints)
}

func TestLevelUpEmitsBothEventsInOrder(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	prevLevel := 1
	var last *gamification.PointsResult
	for i := 0; i < 10; i++ {
		res, err := fx.svc.UpdatePoints(ctx, 1, "mental", &gamification.ActivityData{})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Level, prevLevel)
		assert.Equal(t, res.Total/100+1, res.Level)
		prevLevel = res.Level
		last = res
	}
	assert.Equal(t, 100, last.Total)
	assert.Equal(t, 2, last.Level)
	assert.True(t, last.LeveledUp)

	names := fx.notifier.names()
	require.Len(t, names, 11)
	assert.Equal(t, gamification.EventPointsUpdated, names[9])
	assert.Equal(t, gamification.EventLevelUp, names[10])
	assert.Equal(t, gamification.LevelUp{NewLevel: 2, TotalPoints: 100}, fx.notifier.events[10].Payload)
}

func TestStreakScenario(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	s, err := fx.svc.UpdateStreak(ctx, 1, "workout")
	require.NoError(t, err)
	assert.Equal(t, 1, s.WorkoutStreak)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 1, s.BestStreak)

	fx.clock.Advance(2 * time.Hour)
	s, err = fx.svc.UpdateStreak(ctx, 1, "workout")
	require.NoError(t, err)
	assert.Equal(t, 1, s.WorkoutStreak, "same day holds")

	fx.clock.Advance(day)
	s, err = fx.svc.UpdateStreak(ctx, 1, "workout")
	require.NoError(t, err)
	assert.Equal(t, 2, s.WorkoutStreak)
	assert.Equal(t, 2, s.CurrentStreak)
	assert.Equal(t, 2, s.BestStreak)

	fx.clock.Advance(3 * day)
	s, err = fx.svc.UpdateStreak(ctx, 1, "workout")
	require.NoError(t, err)
	assert.Equal(t, 1, s.WorkoutStreak)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 2, s.BestStreak)

	rec, err := fx.store.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, rec.Streaks.LastWorkoutDate)
	assert.True(t, rec.Streaks.LastWorkoutDate.Equal(time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)))
}

func TestStreakAggregateInvariants(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	steps := []struct {
		category string
		advance  time.Duration
	}{
		{"mental", 0}, {"workout", 0}, {"mental", day}, {"nutrition", 0},
		{"mental", day}, {"workout", 2 * day}, {"nutrition", 0}, {"mental", 0},
		{"nutrition", day}, {"workout", 5 * day}, {"mental", day},
	}
	best := 0
	for i, step := range steps {
		fx.clock.Advance(step.advance)
		s, err := fx.svc.UpdateStreak(ctx, 1, step.category)
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, max(s.WorkoutStreak, s.MentalStreak, s.NutritionStreak), s.CurrentStreak, "step %d", i)
		assert.GreaterOrEqual(t, s.BestStreak, s.CurrentStreak, "step %d", i)
		assert.GreaterOrEqual(t, s.BestStreak, best, "step %d", i)
		best = s.BestStreak
	}
	assert.Equal(t, 3, best)
}

func TestCheckAchievementsIdempotent(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	none, err := fx.svc.CheckAchievements(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, none)

	for i := 0; i < 10; i++ {
		_, err := fx.svc.UpdatePoints(ctx, 1, "nutrition", &gamification.ActivityData{})
		require.NoError(t, err)
	}

	first, err := fx.svc.CheckAchievements(ctx, 1)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "nutrition_master", first[0].ID)
	assert.True(t, first[0].Unlocked)
	assert.Equal(t, 100, first[0].Progress)
	require.NotNil(t, first[0].UnlockedAt)

	second, err := fx.svc.CheckAchievements(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, second)

	rec, err := fx.store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, rec.Achievements, 1)
}

func TestMindfulnessNeedsSevenDayMentalStreak(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if i > 0 {
			fx.clock.Advance(day)
		}
		_, err := fx.svc.UpdateStreak(ctx, 1, "mental")
		require.NoError(t, err)
		got, err := fx.svc.CheckAchievements(ctx, 1)
		require.NoError(t, err)
		if i < 6 {
			assert.Empty(t, got, "day %d", i+1)
		} else {
			require.Len(t, got, 1)
			assert.Equal(t, "mindfulness_master", got[0].ID)
		}
	}
}

func TestAchievementCatalogProgress(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := fx.svc.UpdatePoints(ctx, 1, "nutrition", &gamification.ActivityData{})
		require.NoError(t, err)
	}
	_, err := fx.svc.UpdatePoints(ctx, 1, "workout", workout(3600, 100))
	require.NoError(t, err)
	_, err = fx.svc.CheckAchievements(ctx, 1)
	require.NoError(t, err)

	cat, err := fx.svc.AchievementCatalog(ctx, 1)
	require.NoError(t, err)
	require.Len(t, cat, 3)
	byID := map[string]models.Achievement{}
	for _, a := range cat {
		byID[a.ID] = a
	}
	assert.True(t, byID["workout_master"].Unlocked)
	assert.Contains(t, byID["workout_master"].Description, "3600 minutes")
	assert.False(t, byID["nutrition_master"].Unlocked)
	assert.Equal(t, 50, byID["nutrition_master"].Progress)
	assert.Equal(t, 0, byID["mindfulness_master"].Progress)
}

func TestMoodLogKeepsLatestThirty(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	start := fx.clock.Now()
	moods := []string{"happy", "sad", "anxious", "Neutral"}

	var log []models.MoodEntry
	for i := 0; i < 35; i++ {
		var err error
		log, err = fx.svc.LogMood(ctx, 1, moods[i%len(moods)])
		require.NoError(t, err)
		fx.clock.Advance(time.Minute)
	}
	require.Len(t, log, gamification.MaxMoodEntries)
	for i, e := range log {
		assert.True(t, e.Timestamp.Equal(start.Add(time.Duration(i+5)*time.Minute)), "entry %d", i)
	}
	assert.Equal(t, models.MoodSad, log[0].Mood)
	assert.Equal(t, models.MoodNeutral, log[2].Mood)

	rec, err := fx.store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, rec.MoodLog, gamification.MaxMoodEntries)
}

func TestNotifierFailuresDoNotBreakWrites(t *testing.T) {
	for name, n := range map[string]gamification.Notifier{
		"error": failingNotifier{},
		"panic": panickingNotifier{},
	} {
		t.Run(name, func(t *testing.T) {
			fx := newFixture(t, n)
			ctx := context.Background()
			for i := 0; i < 10; i++ {
				_, err := fx.svc.UpdatePoints(ctx, 1, "mental", &gamification.ActivityData{})
				require.NoError(t, err)
			}
			rec, err := fx.store.Get(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, 100, rec.Points.Mental)
			assert.Equal(t, 2, rec.Level)
		})
	}
}

func TestRecordActivityRunsAllSteps(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	out, err := fx.svc.RecordActivity(ctx, 1, "workout", workout(3600, 1000))
	require.NoError(t, err)
	assert.Equal(t, 370, out.Points.PointsEarned)
	assert.Equal(t, 4, out.Points.Level)
	assert.True(t, out.Points.LeveledUp)
	assert.Equal(t, 1, out.Streaks.WorkoutStreak)
	require.Len(t, out.NewAchievements, 1)
	assert.Equal(t, "workout_master", out.NewAchievements[0].ID)

	_, err = fx.svc.RecordActivity(ctx, 1, "workout", &gamification.ActivityData{})
	assert.ErrorIs(t, err, gamification.ErrInvalidWorkoutData)
}

func TestConcurrentPointsAreNotLost(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	_, err := fx.svc.GetOrCreate(ctx, 1)
	require.NoError(t, err)

	const n = 12
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.svc.UpdatePoints(ctx, 1, "mental", &gamification.ActivityData{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := fx.store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, n*10, rec.Points.Mental)
	assert.Equal(t, n, rec.Stats.TotalMoodChecks)
	assert.Equal(t, 2, rec.Level)
}

func TestAddChallenge(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()
	end := fx.clock.Now().Add(14 * day)

	got, err := fx.svc.AddChallenge(ctx, 1, gamification.ChallengeInput{
		Name:        "<b>Run</b> 5k<script>alert(1)</script>",
		Description: "three times a week",
		Category:    "workout",
		Target:      3,
		EndDate:     end,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Run 5k", got[1].Name)
	assert.NotEmpty(t, got[1].ID)
	assert.True(t, got[1].StartDate.Equal(fx.clock.Now()))

	_, err = fx.svc.AddChallenge(ctx, 1, gamification.ChallengeInput{Name: "x", Category: "workout", Target: 0, EndDate: end})
	assert.ErrorIs(t, err, gamification.ErrInvalidChallenge)
	_, err = fx.svc.AddChallenge(ctx, 1, gamification.ChallengeInput{Name: "x", Category: "workout", Target: 1, EndDate: fx.clock.Now()})
	assert.ErrorIs(t, err, gamification.ErrInvalidChallenge)
	_, err = fx.svc.AddChallenge(ctx, 1, gamification.ChallengeInput{Name: " ", Category: "workout", Target: 1, EndDate: end})
	assert.ErrorIs(t, err, gamification.ErrMissingFields)
	_, err = fx.svc.AddChallenge(ctx, 1, gamification.ChallengeInput{Name: "x", Category: "chess", Target: 1, EndDate: end})
	assert.ErrorIs(t, err, gamification.ErrInvalidCategory)
}

func TestLeaderboardRanks(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	for id := uint(1); id <= 12; id++ {
		_, err := fx.svc.UpdatePoints(ctx, id, "workout", workout(float64(id*10), 100))
		require.NoError(t, err)
	}
	rows, err := fx.svc.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, rows, gamification.LeaderboardSize)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, uint(12), rows[0].UserID)
	assert.Equal(t, 13, rows[0].TotalPoints)
	assert.Equal(t, 10, rows[9].Rank)
	assert.Equal(t, uint(3), rows[9].UserID)
}

func TestStorageFailureIsWrapped(t *testing.T) {
	fx := newFixture(t, nil)
	sqlDB, err := fx.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = fx.svc.UpdateStreak(context.Background(), 1, "workout")
	var se *gamification.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "update streak", se.Op)
}
