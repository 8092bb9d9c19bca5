package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/fitquest/config"
	"github.com/cppla/fitquest/gamification"
	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/utils"
)

// ConfigController serves the client-facing game configuration.
type ConfigController struct{}

func NewConfigController() *ConfigController { return &ConfigController{} }

// GetGameConfig returns the enums and limits a client needs to render forms and progress bars.
func (c *ConfigController) GetGameConfig(ctx *gin.Context) {
	cfg := config.Get()
	utils.Success(ctx, gin.H{
		"categories":      models.Categories(),
		"moods":           models.Moods(),
		"pointsPerLevel":  gamification.PointsPerLevel,
		"maxMoodEntries":  gamification.MaxMoodEntries,
		"leaderboardSize": gamification.LeaderboardSize,
		"timezone":        cfg.Timezone,
		"events": []string{
			gamification.EventPointsUpdated,
			gamification.EventLevelUp,
		},
	})
}
