package gamification

import (
	"time"

	"github.com/cppla/fitquest/models"
)

const (
	welcomeChallengeID     = "welcome"
	welcomeChallengeTarget = 100
	welcomeChallengeDays   = 7
)

// DefaultRecord builds the initial record for a user. Registration and lazy
// creation both go through here so every new user starts from the same state.
func DefaultRecord(userID uint, now time.Time) *models.GamificationRecord {
	now = now.UTC()
	return &models.GamificationRecord{
		UserID:       userID,
		Level:        1,
		Achievements: []models.Achievement{},
		Challenges: []models.Challenge{
			{
				ID:          welcomeChallengeID,
				Name:        "Welcome Challenge",
				Description: "Complete your first activity in each category",
				Category:    models.CategoryWorkout,
				Target:      welcomeChallengeTarget,
				StartDate:   now,
				EndDate:     now.AddDate(0, 0, welcomeChallengeDays),
			},
		},
		MoodLog: []models.MoodEntry{},
	}
}
