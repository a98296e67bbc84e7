package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/seonix/seonix-backend/internal/config"
	"github.com/seonix/seonix-backend/internal/handler"
	"github.com/seonix/seonix-backend/internal/middleware"
	"github.com/seonix/seonix-backend/internal/response"
	"github.com/seonix/seonix-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Session    *handler.SessionHandler
	Proctoring *handler.ProctoringHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Violation reports arrive on a timer from every proctored browser, so
	// they get their own per-user budget.
	violationLimiter := middleware.NewRateLimiter(60, time.Minute)

	// ─── 1. Auth Group (Public) ────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", handlers.Auth.Login)
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Session Group ──────────────────────────────────────────────
	sessions := router.Group("/api/v1/sessions")
	{
		sessions.POST("/start", middleware.RequireStudentJWT(authService), handlers.Session.StartSession)
		sessions.PUT("/:session_id/activity", middleware.RequireStudentJWT(authService), handlers.Session.UpdateActivity)
		sessions.PUT("/:session_id/end", middleware.RequireStudentJWT(authService), handlers.Session.EndSession)
		sessions.GET("/:session_id", middleware.RequireJWT(authService), handlers.Session.GetSession)
		sessions.GET("/exam/:exam_id", middleware.RequireTeacherJWT(authService), handlers.Session.ListByExam)
	}

	// ─── 3. Proctoring Group ───────────────────────────────────────────
	proctoring := router.Group("/api/v1/proctoring")
	{
		proctoring.POST("/log", middleware.RequireStudentJWT(authService), handlers.Proctoring.TouchLog)
		proctoring.POST("/violations",
			middleware.RequireStudentJWT(authService),
			violationLimiter.Middleware(),
			handlers.Proctoring.LogViolation,
		)
		proctoring.GET("/session/:session_id", middleware.RequireJWT(authService), handlers.Proctoring.GetBySession)
		proctoring.GET("/exam/:exam_id", middleware.RequireTeacherJWT(authService), handlers.Proctoring.ListByExam)
		proctoring.GET("/flagged", middleware.RequireTeacherJWT(authService), handlers.Proctoring.ListFlagged)
		proctoring.PUT("/:log_id/review", middleware.RequireTeacherJWT(authService), handlers.Proctoring.Review)
	}

	return router
}
