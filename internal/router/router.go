package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-taker/internal/config"
	"github.com/stemsi/exstem-taker/internal/handler"
	"github.com/stemsi/exstem-taker/internal/middleware"
	"github.com/stemsi/exstem-taker/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam   *handler.ExamHandler
	WS     *handler.WSHandler
	System *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background goroutines owned by middlewares.
func SetupRouter(
	ctx context.Context,
	auth middleware.TokenValidator,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		Quality:       middleware.DefaultBrotliConfig.Quality,
		MinLength:     middleware.DefaultBrotliConfig.MinLength,
		ExcludedPaths: []string{"/ws/"},
	}))

	// Health check.
	router.GET("/health", handlers.System.Health)

	submitLimiter := middleware.NewRateLimiter(ctx, cfg.SubmitRatePerMin, time.Minute)

	// ─── 1. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(auth),
		middleware.NoStore(),
	)
	{
		instance := studentAPI.Group("/exams/:exam_id/instances/:instance_id")
		instance.GET("/questions", handlers.Exam.GetQuestions)
		instance.POST("/submit", submitLimiter.Middleware(), handlers.Exam.SubmitExam)
	}

	// ─── 2. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(auth))
	{
		ws.GET("/student/exams/:exam_id/instances/:instance_id/stream", handlers.WS.ExamStream)
	}

	return router
}
