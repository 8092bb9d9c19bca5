package gamification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cppla/fitquest/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAdvanceStreak(t *testing.T) {
	today := day(2024, 5, 10)
	yesterday := today.AddDate(0, 0, -1)
	lastWeek := today.AddDate(0, 0, -7)
	tomorrow := today.AddDate(0, 0, 1)

	cases := []struct {
		name  string
		count int
		last  *time.Time
		want  int
	}{
		{"first activity", 0, nil, 1},
		{"same day holds", 4, &today, 4},
		{"next day increments", 4, &yesterday, 5},
		{"gap resets", 4, &lastWeek, 1},
		{"future last date resets", 4, &tomorrow, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, last := advanceStreak(tc.count, tc.last, today)
			assert.Equal(t, tc.want, got)
			if assert.NotNil(t, last) {
				assert.True(t, last.Equal(today))
			}
		})
	}
}

func TestCivilDayUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 20:00 UTC on the 9th is already the 10th in Tokyo.
	ts := time.Date(2024, 5, 9, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, day(2024, 5, 10), civilDay(ts, tokyo))
	assert.Equal(t, day(2024, 5, 9), civilDay(ts, time.UTC))
}

func TestApplyStreakAggregates(t *testing.T) {
	var s models.Streaks
	d := day(2024, 1, 1)

	for i := 0; i < 3; i++ {
		applyStreak(&s, models.CategoryMental, d.AddDate(0, 0, i))
	}
	applyStreak(&s, models.CategoryWorkout, d.AddDate(0, 0, 2))
	assert.Equal(t, 3, s.MentalStreak)
	assert.Equal(t, 1, s.WorkoutStreak)
	assert.Equal(t, 3, s.CurrentStreak)
	assert.Equal(t, 3, s.BestStreak)

	// breaking the mental streak drops current but never best
	applyStreak(&s, models.CategoryMental, d.AddDate(0, 0, 10))
	assert.Equal(t, 1, s.MentalStreak)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 3, s.BestStreak)
}
