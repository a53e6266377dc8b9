package middleware

import (
	"flocksync/internal/repository"
	"flocksync/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DeviceAuthMiddleware gates the kiosk routes on the device API key carried
// in X-Flock-Key. bypass skips validation for load testing.
func DeviceAuthMiddleware(repo repository.DeviceRepository, bypass bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bypass {
			c.Next()
			return
		}

		apiKey := c.GetHeader("X-Flock-Key")
		if apiKey == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "missing device key"})
			return
		}

		valid, err := repo.ValidateAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			logger.Error("device key validation failed", zap.Error(err))
			c.AbortWithStatusJSON(500, gin.H{"error": "device key validation failed"})
			return
		}
		if !valid {
			c.AbortWithStatusJSON(403, gin.H{"error": "unknown or disabled device key"})
			return
		}

		c.Next()
	}
}
