package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskhive/go-reminder-service/internal/metrics"
	"golang.org/x/time/rate"
)

// NewTriggerRateLimiter builds a limiter for the sweep trigger endpoint.
// The trigger is meant for an external cron firing about once a minute;
// the limiter keeps a misconfigured caller from turning the sweep into a
// busy loop.
func NewTriggerRateLimiter(rps float64, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// RateLimitMiddleware rejects requests beyond the limiter's budget
func RateLimitMiddleware(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			metrics.RateLimitExceeded.Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
