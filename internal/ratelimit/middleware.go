package ratelimit

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecoplant/plant-rewards/internal/apperror"
	prommetrics "github.com/ecoplant/plant-rewards/internal/metrics"
)

// Middleware rejects requests from clients that exhausted their bucket.
// Clients are keyed by IP address.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.Allow(c.ClientIP()) {
			c.Next()
			return
		}

		prommetrics.RecordRateLimited()
		appErr := apperror.RateLimited()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":     appErr.Message,
			"code":      appErr.Kind,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
