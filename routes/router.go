package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/fitquest/config"
	"github.com/cppla/fitquest/controllers"
	"github.com/cppla/fitquest/gamification"
	"github.com/cppla/fitquest/middleware"
	"github.com/cppla/fitquest/realtime"
	"github.com/cppla/fitquest/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, svc *gamification.Service, hub *realtime.Hub) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
		r.Use(ginzap.RecoveryWithZap(gl, false))
	} else {
		utils.Sugar.Warnf("gin access log disabled: %v", err)
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		// credentials cannot be combined with a wildcard origin
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	r.GET("/ws", realtime.ServeWS(hub, verifySocketToken, cfg.AllowedOrigins))

	authController := controllers.NewAuthController(db, svc)
	gamificationController := controllers.NewGamificationController(svc)
	statsController := controllers.NewStatsController(db, cfg.Location())
	configController := controllers.NewConfigController()

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	// Public reads
	api.GET("/gamification/leaderboard", gamificationController.Leaderboard)
	api.GET("/stats", statsController.GetStats)
	api.GET("/config", configController.GetGameConfig)

	game := api.Group("/gamification")
	game.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	game.GET("/data", gamificationController.GetData)
	game.POST("/points", gamificationController.UpdatePoints)
	game.POST("/streak", gamificationController.UpdateStreak)
	game.POST("/mood", gamificationController.LogMood)
	game.GET("/achievements", gamificationController.CheckAchievements)
	game.GET("/achievements/catalog", gamificationController.AchievementCatalog)
	game.POST("/activity", gamificationController.RecordActivity)
	game.POST("/challenges", gamificationController.AddChallenge)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40401, "not found")
	})

	return r
}

func verifySocketToken(token string) (uint, error) {
	claims, err := utils.VerifyToken(token)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}
