package gamification

import (
	"time"

	"github.com/cppla/fitquest/models"
)

// Rule is one achievement definition. Progress reports 0-100 toward unlocking.
type Rule struct {
	ID          string
	Name        string
	Description string
	Category    models.Category
	Icon        string
	Progress    func(*models.GamificationRecord) int
}

// Met reports whether the rule's condition holds for rec.
func (r Rule) Met(rec *models.GamificationRecord) bool {
	return r.Progress(rec) >= 100
}

// Rules returns the achievement table.
func Rules() []Rule {
	return []Rule{
		{
			ID: "workout_master", Name: "Workout Master", Category: models.CategoryWorkout,
			Description: "Log 3600 minutes (60 hours) of workouts", Icon: "FaDumbbell",
			Progress: func(r *models.GamificationRecord) int { return percent(r.Stats.TotalWorkoutTime, 3600) },
		},
		{
			ID: "mindfulness_master", Name: "Mindfulness Master", Category: models.CategoryMental,
			Description: "Maintain a 7-day mental health streak", Icon: "FaBrain",
			Progress: func(r *models.GamificationRecord) int { return percent(float64(r.Streaks.MentalStreak), 7) },
		},
		{
			ID: "nutrition_master", Name: "Nutrition Master", Category: models.CategoryNutrition,
			Description: "Log 10 meals", Icon: "FaAppleAlt",
			Progress: func(r *models.GamificationRecord) int { return percent(float64(r.Stats.TotalMealsLogged), 10) },
		},
	}
}

func percent(v, target float64) int {
	if v >= target {
		return 100
	}
	if v <= 0 {
		return 0
	}
	return int(v * 100 / target)
}

func hasAchievement(rec *models.GamificationRecord, id string) bool {
	for _, a := range rec.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}

// unlockAchievements appends every newly met rule and returns the new entries.
func unlockAchievements(rec *models.GamificationRecord, rules []Rule, now time.Time) []models.Achievement {
	unlocked := []models.Achievement{}
	for _, rule := range rules {
		if hasAchievement(rec, rule.ID) || !rule.Met(rec) {
			continue
		}
		at := now.UTC()
		a := models.Achievement{
			ID:          rule.ID,
			Name:        rule.Name,
			Description: rule.Description,
			Category:    rule.Category,
			Unlocked:    true,
			Progress:    100,
			Icon:        rule.Icon,
			UnlockedAt:  &at,
		}
		rec.Achievements = append(rec.Achievements, a)
		unlocked = append(unlocked, a)
	}
	return unlocked
}

// catalog lists every rule with its derived progress and unlocked state.
func catalog(rec *models.GamificationRecord, rules []Rule) []models.Achievement {
	out := make([]models.Achievement, 0, len(rules))
	for _, rule := range rules {
		a := models.Achievement{
			ID:          rule.ID,
			Name:        rule.Name,
			Description: rule.Description,
			Category:    rule.Category,
			Icon:        rule.Icon,
			Progress:    rule.Progress(rec),
		}
		for _, got := range rec.Achievements {
			if got.ID == rule.ID {
				a.Unlocked = true
				a.Progress = 100
				a.UnlockedAt = got.UnlockedAt
				break
			}
		}
		out = append(out, a)
	}
	return out
}
