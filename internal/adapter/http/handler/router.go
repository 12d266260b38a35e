package handler

import (
	"bch-paywall/internal/adapter/http/middleware"
	redisStore "bch-paywall/internal/adapter/storage/redis"
	"bch-paywall/internal/core/ports"
	"bch-paywall/internal/metrics"
	"bch-paywall/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	SessionSvc     ports.PaymentSessionService
	AdminSvc       ports.AdminService
	ReportingSvc   ports.ReportingService
	TokenSvc       ports.TokenService
	ModeSource     *service.RuntimeModeSource
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit
	r.Use(metrics.Middleware())

	// Deep health check covering PostgreSQL and Redis.
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Prometheus metrics
	r.GET("/metrics", metrics.Handler())

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (paywall pages) ---
	sessionHandler := NewSessionHandler(deps.SessionSvc)
	sessions := v1.Group("/sessions")
	{
		sessions.POST("", rl("sessions_create"), sessionHandler.CreateSession)
		sessions.POST("/status", rl("sessions_status"), sessionHandler.GetStatus)
	}

	// --- Admin dashboard routes ---
	adminHandler := NewAdminHandler(deps.AdminSvc, deps.ReportingSvc, deps.ModeSource)
	admin := v1.Group("/admin")
	{
		admin.POST("/login", rl("admin_login"), adminHandler.Login)

		jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
		authed := admin.Group("", jwtAuth)
		{
			authed.GET("/stats", rl("dashboard"), adminHandler.GetStats)
			authed.GET("/sessions", rl("dashboard"), adminHandler.ListSessions)
			authed.GET("/mode", rl("dashboard"), adminHandler.GetMode)
			authed.PUT("/mode", rl("dashboard"), adminHandler.SetMode)
		}
	}

	return r
}
