package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/fitquest/models"
)

func f(v float64) *float64 { return &v }

func TestLevelFor(t *testing.T) {
	assert.Equal(t, 1, LevelFor(0))
	assert.Equal(t, 1, LevelFor(99))
	assert.Equal(t, 2, LevelFor(100))
	assert.Equal(t, 4, LevelFor(350))
	assert.Equal(t, 1, LevelFor(-5))
}

func TestWorkoutPoints(t *testing.T) {
	assert.Equal(t, 8, WorkoutPoints(50, 300))
	assert.Equal(t, 0, WorkoutPoints(9, 99))
	assert.Equal(t, 12, WorkoutPoints(45.5, 875))
}

func TestNutritionPoints(t *testing.T) {
	assert.Equal(t, 10, NutritionPoints(&Macronutrients{Protein: 25, Carbohydrates: 40, Fats: 25}))
	assert.Equal(t, 5, NutritionPoints(&Macronutrients{Protein: 5, Carbohydrates: 90, Fats: 5}))
	assert.Equal(t, 5, NutritionPoints(&Macronutrients{}))
	assert.Equal(t, 5, NutritionPoints(nil))
}

func TestValidateActivity(t *testing.T) {
	_, err := validateActivity("", &ActivityData{})
	assert.ErrorIs(t, err, ErrMissingFields)
	_, err = validateActivity("workout", nil)
	assert.ErrorIs(t, err, ErrMissingFields)
	_, err = validateActivity("yoga", &ActivityData{})
	assert.ErrorIs(t, err, ErrInvalidActivity)

	for _, data := range []*ActivityData{
		{},
		{Duration: f(30)},
		{CaloriesBurned: f(200)},
		{Duration: f(0), CaloriesBurned: f(200)},
		{Duration: f(30), CaloriesBurned: f(-1)},
	} {
		_, err = validateActivity("workout", data)
		assert.ErrorIs(t, err, ErrInvalidWorkoutData)
	}

	c, err := validateActivity("mental", &ActivityData{})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryMental, c)
}

func TestApplyPointsUpdatesStatsAndLevel(t *testing.T) {
	rec := &models.GamificationRecord{Level: 1, Points: models.Points{Workout: 95}}

	earned, leveled := applyPoints(rec, models.CategoryWorkout, &ActivityData{Duration: f(50), CaloriesBurned: f(300)})
	assert.Equal(t, 8, earned)
	assert.True(t, leveled)
	assert.Equal(t, 2, rec.Level)
	assert.Equal(t, 103, rec.Points.Workout)
	assert.Equal(t, 50.0, rec.Stats.TotalWorkoutTime)
	assert.Equal(t, 300.0, rec.Stats.TotalCaloriesBurned)

	earned, leveled = applyPoints(rec, models.CategoryMental, &ActivityData{})
	assert.Equal(t, 10, earned)
	assert.False(t, leveled)
	assert.Equal(t, 1, rec.Stats.TotalMoodChecks)

	applyPoints(rec, models.CategoryNutrition, &ActivityData{})
	assert.Equal(t, 1, rec.Stats.TotalMealsLogged)
	assert.Equal(t, LevelFor(rec.Points.Total()), rec.Level)
}
