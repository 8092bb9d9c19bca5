package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/fitquest/config"
	"github.com/cppla/fitquest/gamification"
	"github.com/cppla/fitquest/models"
	"github.com/cppla/fitquest/utils"
)

const leaderboardCacheKey = "gamification:leaderboard"

// GamificationController exposes the gamification engine over HTTP.
type GamificationController struct {
	svc *gamification.Service
}

// NewGamificationController creates the controller.
func NewGamificationController(svc *gamification.Service) *GamificationController {
	return &GamificationController{svc: svc}
}

type activityRequest struct {
	Activity string                     `json:"activity"`
	Data     *gamification.ActivityData `json:"data"`
}

// GetData returns the caller's record, creating it on first access.
func (g *GamificationController) GetData(ctx *gin.Context) {
	userID, _ := getUserID(ctx)
	rec, err := g.svc.GetOrCreate(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, rec)
}

// UpdatePoints awards points for one logged activity.
func (g *GamificationController) UpdatePoints(ctx *gin.Context) {
	userID, _ := getUserID(ctx)
	var req activityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}
	res, err := g.svc.UpdatePoints(ctx.Request.Context(), userID, req.Activity, req.Data)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// UpdateStreak records today's activity for a category.
func (g *GamificationController) UpdateStreak(ctx *gin.Context) {
	userID, _ := getUserID(ctx)
	var req struct {
		Category string `json:"category"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}
	streaks, err := g.svc.UpdateStreak(ctx.Request.Context(), userID, req.Category)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"streaks": streaks, "message": "streak updated"})
}

// LogMood appends to the mood log.
func (g *GamificationController) LogMood(ctx *gin.Context) {
	userID, _ := getUserID(ctx)
	var req struct {
		Mood string `json:"mood"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}
	entries, err := g.svc.LogMood(ctx.Request.Context(), userID, req.Mood)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"moodLog": entries})
}

// CheckAchievements runs the evaluator and returns what it newly unlocked.
func (g *GamificationController) CheckAchievements(ctx *gin.Context) {
	userID, _ := getUserID(ctx)
	unlocked, err := g.svc.CheckAchievements(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"newAchievements": unlocked})
}

// AchievementCatalog lists every achievement with progress.
func (g *GamificationController) AchievementCatalog(ctx *gin.Context) {
	userID, _ := getUserID(ctx)
	list, err := g.svc.AchievementCatalog(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"achievements": list})
}

// RecordActivity runs points, streak and achievements for one activity.
func (g *GamificationController) RecordActivity(ctx *gin.Context) {
	userID, _ := getUserID(ctx)
	var req activityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}
	out, err := g.svc.RecordActivity(ctx.Request.Context(), userID, req.Activity, req.Data)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, out)
}

// AddChallenge stores a custom challenge.
func (g *GamificationController) AddChallenge(ctx *gin.Context) {
	userID, _ := getUserID(ctx)
	var req gamification.ChallengeInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}
	challenges, err := g.svc.AddChallenge(ctx.Request.Context(), userID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"challenges": challenges})
}

// Leaderboard returns the public top list, served from redis when fresh.
func (g *GamificationController) Leaderboard(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(leaderboardCacheKey); ok {
		var rows []models.LeaderboardEntry
		if err := json.Unmarshal(b, &rows); err == nil {
			utils.Success(ctx, gin.H{"leaderboard": rows})
			return
		}
	}
	rows, err := g.svc.Leaderboard(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	ttl := time.Duration(config.Get().LeaderboardCacheSeconds) * time.Second
	utils.CacheSetJSON(leaderboardCacheKey, rows, ttl)
	utils.Success(ctx, gin.H{"leaderboard": rows})
}

// respondError maps engine errors to HTTP statuses. Storage details stay in the log
// unless gin runs in debug mode.
func respondError(ctx *gin.Context, err error) {
	var se *gamification.StorageError
	switch {
	case errors.Is(err, gamification.ErrUnauthenticated):
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	case errors.Is(err, gamification.ErrMissingFields):
		utils.Error(ctx, http.StatusBadRequest, 40011, err.Error())
	case errors.Is(err, gamification.ErrInvalidActivity):
		utils.Error(ctx, http.StatusBadRequest, 40012, err.Error())
	case errors.Is(err, gamification.ErrInvalidCategory):
		utils.Error(ctx, http.StatusBadRequest, 40013, err.Error())
	case errors.Is(err, gamification.ErrInvalidWorkoutData):
		utils.Error(ctx, http.StatusBadRequest, 40014, err.Error())
	case errors.Is(err, gamification.ErrInvalidMood):
		utils.Error(ctx, http.StatusBadRequest, 40015, err.Error())
	case errors.Is(err, gamification.ErrInvalidChallenge):
		utils.Error(ctx, http.StatusBadRequest, 40016, err.Error())
	case errors.As(err, &se):
		utils.Logger.Error("gamification storage failure",
			zap.String("op", se.Op), zap.Error(se.Err), zap.String("path", ctx.FullPath()))
		serverError(ctx, 50010, err)
	default:
		utils.Sugar.Errorf("gamification request failed: %v", err)
		serverError(ctx, 50011, err)
	}
}

func serverError(ctx *gin.Context, code int, err error) {
	if config.Get().IsDebug() {
		utils.ErrorWithDetails(ctx, http.StatusInternalServerError, code, "server error", err.Error())
		return
	}
	utils.Error(ctx, http.StatusInternalServerError, code, "server error")
}
