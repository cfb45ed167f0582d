package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"livey-backend/internal/limiter"
	"livey-backend/internal/models"
)

// RateLimit allows limit requests per client IP per window in bucket.
// A limiter error lets the request through.
func RateLimit(l limiter.Limiter, bucket string, limit int, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter, err := l.Allow(c.Request.Context(), bucket, limiter.HashIP(c.ClientIP()), limit, window)
		if err != nil {
			log.Warn("rate limiter unavailable, allowing request", zap.String("bucket", bucket), zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			secs := int(math.Ceil(retryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error:   "Too many requests",
				Message: "Too many orders from this address, please try again later",
			})
			return
		}
		c.Next()
	}
}
