package gamification

import (
	"time"

	"github.com/cppla/fitquest/models"
)

// civilDay returns the calendar day of t in loc, encoded as UTC midnight.
func civilDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dayGap is the number of calendar days from last to today. Both are civil days.
func dayGap(last, today time.Time) int {
	return int(today.Sub(last).Hours() / 24)
}

// advanceStreak applies the same-day / next-day / reset rule to one category counter.
// A last date after today (backfill or clock skew) resets like a broken streak.
func advanceStreak(count int, last *time.Time, today time.Time) (int, *time.Time) {
	t := today
	if last == nil {
		return 1, &t
	}
	switch gap := dayGap(civilDay(*last, time.UTC), today); {
	case gap == 0:
		return count, last
	case gap == 1:
		return count + 1, &t
	case gap < 0:
		return 1, &t
	default:
		return 1, &t
	}
}

// applyStreak advances the counter for c and recomputes the aggregates.
func applyStreak(s *models.Streaks, c models.Category, today time.Time) {
	switch c {
	case models.CategoryWorkout:
		s.WorkoutStreak, s.LastWorkoutDate = advanceStreak(s.WorkoutStreak, s.LastWorkoutDate, today)
	case models.CategoryMental:
		s.MentalStreak, s.LastMentalDate = advanceStreak(s.MentalStreak, s.LastMentalDate, today)
	case models.CategoryNutrition:
		s.NutritionStreak, s.LastNutritionDate = advanceStreak(s.NutritionStreak, s.LastNutritionDate, today)
	}
	s.CurrentStreak = max(s.WorkoutStreak, s.MentalStreak, s.NutritionStreak)
	s.BestStreak = max(s.BestStreak, s.CurrentStreak)
}
