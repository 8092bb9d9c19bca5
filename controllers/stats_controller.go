package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/utils"
)

// StatsController provides platform statistics such as counts and daily active users.
type StatsController struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

// NewStatsController creates a new StatsController. loc decides which civil day counts as today.
func NewStatsController(db *gorm.DB, loc *time.Location) *StatsController {
	if loc == nil {
		loc = time.Local
	}
	return &StatsController{db: db, loc: loc, now: time.Now}
}

// GetStats returns aggregate statistics across all users.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount int64
	var totalPoints int64
	var activeToday int64

	db := s.db.WithContext(ctx.Request.Context())
	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		utils.Sugar.Warnf("stats user count: %v", err)
		userCount = 0
	}

	if err := db.Model(&models.GamificationRecord{}).
		Select("COALESCE(SUM(points_workout + points_mental + points_nutrition),0)").
		Scan(&totalPoints).Error; err != nil {
		totalPoints = 0
	}

	// streak dates are stored as UTC midnight of the civil day
	y, m, d := s.now().In(s.loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if err := db.Model(&models.GamificationRecord{}).
		Where("streak_last_workout_date = ? OR streak_last_mental_date = ? OR streak_last_nutrition_date = ?", today, today, today).
		Count(&activeToday).Error; err != nil {
		activeToday = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":         userCount,
		"total_points":       totalPoints,
		"daily_active_count": activeToday,
	})
}
