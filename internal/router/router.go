package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stemsi/exstem-interview/internal/config"
	"github.com/stemsi/exstem-interview/internal/handler"
	"github.com/stemsi/exstem-interview/internal/metrics"
	"github.com/stemsi/exstem-interview/internal/middleware"
	"github.com/stemsi/exstem-interview/internal/response"
	"github.com/stemsi/exstem-interview/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Interview *handler.InterviewHandler
	Report    *handler.ReportHandler
	WS        *handler.WSHandler
	Monitor   *handler.MonitorHandler
	System    *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	tokens *service.TokenService,
	limiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(metrics.Middleware())

	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	auth := middleware.RequireAuth(tokens)
	candidateOnly := middleware.RequireRole(service.RoleCandidate)
	proctorOnly := middleware.RequireRole(service.RoleProctor)

	// ─── 1. REST API (JWT, rate limited) ───────────────────────────────
	api := router.Group("/api/v1")
	api.Use(auth, limiter.Middleware(), middleware.Brotli(5))

	interviews := api.Group("/interviews", middleware.NoStore())
	{
		interviews.POST("", candidateOnly, handlers.Interview.CreateInterview)
		interviews.GET("", candidateOnly, handlers.Interview.ListInterviews)
		interviews.POST("/:id/start", candidateOnly, handlers.Interview.StartInterview)
		interviews.POST("/:id/answers", candidateOnly, handlers.Interview.SubmitAnswer)
		interviews.POST("/:id/answers/audio", candidateOnly, handlers.Interview.SubmitAudioAnswer)
		interviews.POST("/:id/signals", candidateOnly, handlers.Interview.PostSignal)
		interviews.POST("/:id/end", candidateOnly, handlers.Interview.EndInterview)
		interviews.GET("/:id", handlers.Interview.GetInterview)
		interviews.POST("/:id/report", handlers.Report.GenerateReport)

		interviews.GET("/:id/violations", proctorOnly, handlers.Interview.ListViolations)
		interviews.GET("/:id/monitor", proctorOnly, handlers.Monitor.MonitorSessionSSE)
	}

	reports := api.Group("/reports")
	{
		reports.GET("/:id", handlers.Report.GetReport)
		reports.POST("/:id/artifact", handlers.Report.RequestArtifact)
		reports.GET("/artifacts/:filename",
			middleware.CacheControl("private, max-age=86400"),
			handlers.Report.DownloadArtifact,
		)
	}

	api.GET("/system/status", proctorOnly, handlers.System.Status)

	// ─── 2. WebSocket (token in query) ─────────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(auth, candidateOnly)
	{
		ws.GET("/interviews/:id/signals", handlers.WS.SignalStream)
	}

	return router
}
