package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"livey-backend/internal/models"
)

const CronSecretHeader = "x-cron-secret"

// CronSecret guards scheduler-only endpoints. The secret is read from the
// x-cron-secret header or a Bearer token. An empty secret rejects every call.
func CronSecret(secret string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			log.Error("cron endpoint called but CRON_SECRET is not set")
			c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Cron secret not configured"})
			return
		}

		got := c.GetHeader(CronSecretHeader)
		if got == "" {
			if scheme, tok, ok := strings.Cut(c.GetHeader("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
				got = strings.TrimSpace(tok)
			}
		}

		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
			return
		}
		c.Next()
	}
}
