package gamification

import (
	"math"

	"github.com/cppla/fitquest/models"
)

// PointsPerLevel is the width of one level in total points.
const PointsPerLevel = 100

const (
	mentalPoints       = 10
	nutritionBase      = 5
	nutritionBonus     = 5
	minProteinShare    = 0.20
	minCarbShare       = 0.30
	minFatShare        = 0.20
	workoutMinutesUnit = 10
	workoutCalorieUnit = 100
)

// Macronutrients are grams per macro for one meal.
type Macronutrients struct {
	Protein       float64 `json:"protein"`
	Carbohydrates float64 `json:"carbohydrates"`
	Fats          float64 `json:"fats"`
}

// ActivityData is the activity-specific payload. Pointers distinguish absent fields from zero.
type ActivityData struct {
	Duration       *float64        `json:"duration,omitempty"`
	CaloriesBurned *float64        `json:"caloriesBurned,omitempty"`
	Macronutrients *Macronutrients `json:"macronutrients,omitempty"`
}

// PointsResult is returned by UpdatePoints and pushed as points_updated.
type PointsResult struct {
	PointsEarned   int  `json:"points"`
	Total          int  `json:"total"`
	Level          int  `json:"level"`
	LeveledUp      bool `json:"leveledUp"`
	ActivityPoints int  `json:"activityPoints"`
}

// LevelUp is the level_up event payload.
type LevelUp struct {
	NewLevel    int `json:"newLevel"`
	TotalPoints int `json:"totalPoints"`
}

// LevelFor derives the level from total points.
func LevelFor(total int) int {
	if total < 0 {
		total = 0
	}
	return total/PointsPerLevel + 1
}

// WorkoutPoints awards one point per 10 minutes and one per 100 calories.
func WorkoutPoints(duration, calories float64) int {
	return int(math.Floor(duration/workoutMinutesUnit)) + int(math.Floor(calories/workoutCalorieUnit))
}

// NutritionPoints is the base award plus the balanced-macros bonus.
func NutritionPoints(m *Macronutrients) int {
	if Balanced(m) {
		return nutritionBase + nutritionBonus
	}
	return nutritionBase
}

// Balanced reports whether the macro split meets every minimum share.
func Balanced(m *Macronutrients) bool {
	if m == nil {
		return false
	}
	total := m.Protein + m.Carbohydrates + m.Fats
	if total <= 0 {
		return false
	}
	return m.Protein/total >= minProteinShare &&
		m.Carbohydrates/total >= minCarbShare &&
		m.Fats/total >= minFatShare
}

// validateActivity checks the payload before any storage access.
func validateActivity(activity string, data *ActivityData) (models.Category, error) {
	if activity == "" || data == nil {
		return "", ErrMissingFields
	}
	c, ok := models.ParseCategory(activity)
	if !ok {
		return "", ErrInvalidActivity
	}
	if c == models.CategoryWorkout {
		if data.Duration == nil || data.CaloriesBurned == nil || *data.Duration <= 0 || *data.CaloriesBurned <= 0 {
			return "", ErrInvalidWorkoutData
		}
	}
	return c, nil
}

// applyPoints credits the award for c, folds the activity into stats and
// recomputes the level. It returns the award and whether the level went up.
func applyPoints(rec *models.GamificationRecord, c models.Category, data *ActivityData) (int, bool) {
	var earned int
	switch c {
	case models.CategoryWorkout:
		earned = WorkoutPoints(*data.Duration, *data.CaloriesBurned)
		rec.Stats.TotalWorkoutTime += *data.Duration
		rec.Stats.TotalCaloriesBurned += *data.CaloriesBurned
	case models.CategoryMental:
		earned = mentalPoints
		rec.Stats.TotalMoodChecks++
	case models.CategoryNutrition:
		earned = NutritionPoints(data.Macronutrients)
		rec.Stats.TotalMealsLogged++
	}
	rec.Points.Add(c, earned)

	prev := rec.Level
	rec.Level = LevelFor(rec.Points.Total())
	return earned, rec.Level > prev
}
