package models

import (
	"time"

	"gorm.io/datatypes"
)

// GamificationRecord is the per-user gamification document. One row per user.
type GamificationRecord struct {
	ID           uint                             `gorm:"primaryKey" json:"-"`
	UserID       uint                             `gorm:"uniqueIndex;not null" json:"userId"`
	Points       Points                           `gorm:"embedded;embeddedPrefix:points_" json:"points"`
	Level        int                              `gorm:"not null;default:1" json:"level"`
	Streaks      Streaks                          `gorm:"embedded;embeddedPrefix:streak_" json:"streaks"`
	Achievements datatypes.JSONSlice[Achievement] `json:"achievements"`
	Challenges   datatypes.JSONSlice[Challenge]   `json:"challenges"`
	MoodLog      datatypes.JSONSlice[MoodEntry]   `json:"moodLog"`
	Stats        Stats                            `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`
	Version      int                              `gorm:"not null;default:0" json:"-"`
	CreatedAt    time.Time                        `json:"createdAt"`
	UpdatedAt    time.Time                        `json:"updatedAt"`
}

// TableName pins the table name independent of gorm's pluralizer.
func (GamificationRecord) TableName() string { return "gamification_records" }

// Points holds the cumulative points per category.
type Points struct {
	Workout   int `gorm:"not null;default:0" json:"workout"`
	Mental    int `gorm:"not null;default:0" json:"mental"`
	Nutrition int `gorm:"not null;default:0" json:"nutrition"`
}

// Total sums all categories.
func (p Points) Total() int {
	return p.Workout + p.Mental + p.Nutrition
}

// Of returns the points of a single category.
func (p Points) Of(c Category) int {
	switch c {
	case CategoryWorkout:
		return p.Workout
	case CategoryMental:
		return p.Mental
	case CategoryNutrition:
		return p.Nutrition
	}
	return 0
}

// Add credits n points to category c.
func (p *Points) Add(c Category, n int) {
	switch c {
	case CategoryWorkout:
		p.Workout += n
	case CategoryMental:
		p.Mental += n
	case CategoryNutrition:
		p.Nutrition += n
	}
}

// Streaks tracks per-category day streaks plus the aggregates.
// Last*Date values carry day precision only: UTC midnight of the civil day.
type Streaks struct {
	WorkoutStreak     int        `gorm:"not null;default:0" json:"workoutStreak"`
	MentalStreak      int        `gorm:"not null;default:0" json:"mentalStreak"`
	NutritionStreak   int        `gorm:"not null;default:0" json:"nutritionStreak"`
	CurrentStreak     int        `gorm:"not null;default:0" json:"currentStreak"`
	BestStreak        int        `gorm:"not null;default:0" json:"bestStreak"`
	LastWorkoutDate   *time.Time `json:"lastWorkoutDate"`
	LastMentalDate    *time.Time `json:"lastMentalDate"`
	LastNutritionDate *time.Time `json:"lastNutritionDate"`
}

// Achievement is an unlocked badge.
type Achievement struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Category    Category   `json:"category"`
	Unlocked    bool       `json:"unlocked"`
	Progress    int        `json:"progress"`
	Icon        string     `json:"icon"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty"`
}

// Challenge is a time-boxed progress goal. Stored only; nothing evaluates it yet.
type Challenge struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Target      int       `json:"target"`
	Progress    int       `json:"progress"`
	Completed   bool      `json:"completed"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
}

// MoodEntry is one mood log line.
type MoodEntry struct {
	Mood      Mood      `json:"mood"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats aggregates logged activity.
type Stats struct {
	TotalWorkoutTime    float64 `gorm:"not null;default:0" json:"totalWorkoutTime"`
	TotalCaloriesBurned float64 `gorm:"not null;default:0" json:"totalCaloriesBurned"`
	TotalMealsLogged    int     `gorm:"not null;default:0" json:"totalMealsLogged"`
	TotalMoodChecks     int     `gorm:"not null;default:0" json:"totalMoodChecks"`
}

// LeaderboardEntry is one row of the public leaderboard.
type LeaderboardEntry struct {
	Rank        int    `gorm:"-" json:"rank"`
	UserID      uint   `json:"userId"`
	Username    string `json:"username"`
	TotalPoints int    `json:"totalPoints"`
	Level       int    `json:"level"`
}
