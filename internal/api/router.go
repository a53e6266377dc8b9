package api

import (
	"flocksync/internal/metrics"
	"flocksync/internal/middleware"
	"flocksync/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(queueHandler *QueueHandler, streamHandler *StreamHandler, authHandler *AuthHandler, deviceRepo repository.DeviceRepository, rdb *redis.Client, requestsPerSecond int, env string) *gin.Engine {
	r := gin.New()

	// Determine if we should bypass auth (e.g. for load testing)
	bypassAuth := env == "loadtest"

	// Global Middleware
	r.Use(
		middleware.CorsMiddleware(),
		middleware.RequestID(),
		middleware.GinZapLogger(),
		middleware.GinZapRecovery(),
		middleware.HttpMiddleware(),
		middleware.TraceMiddleware(),
	)
	r.SetTrustedProxies(nil)

	// Public Routes
	r.GET("/health", queueHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Auth Routes (Public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	// Auth Routes (Protected)
	authProtected := r.Group("/v1/auth")
	authProtected.Use(middleware.JWTMiddleware(true))
	{
		authProtected.GET("/me", authHandler.GetProfile)
		authProtected.POST("/logout", authHandler.Logout)
	}

	// Kiosk Routes (Protected by Device Key)
	kiosk := r.Group("/v1")
	kiosk.Use(middleware.DeviceAuthMiddleware(deviceRepo, bypassAuth))

	// Rate Limiter for Write Operations
	writeLimiter := middleware.RateLimitMiddleware(rdb, requestsPerSecond)

	{
		kiosk.POST("/queue", writeLimiter, queueHandler.Enqueue)
		kiosk.GET("/queue", queueHandler.ListItems)
		kiosk.GET("/queue/count", queueHandler.Count)
		kiosk.GET("/queue/:id", queueHandler.GetItem)
		kiosk.POST("/sync", queueHandler.Sync)
		kiosk.GET("/status", queueHandler.Status)
		kiosk.GET("/stream/queue", streamHandler.WatchQueue)
	}

	// Admin Routes (Protected by Operator JWT)
	// Enable Dev-Pass=true for debugging
	admin := r.Group("/v1")
	admin.Use(middleware.JWTMiddleware(true))
	{
		admin.DELETE("/queue/:id", queueHandler.RemoveItem)
		admin.DELETE("/queue", queueHandler.ClearQueue)
		admin.GET("/admin/audits", queueHandler.GetAudits)
	}
	return r
}
