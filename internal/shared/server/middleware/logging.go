package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"applybro-backend/internal/shared/telemetry"
)

// contextLogFields maps values handlers stash on the gin context to log field names.
var contextLogFields = map[string]string{
	"documentId":    "document_id",
	"scholarshipId": "scholarship_id",
}

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		status := c.Writer.Status()

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"user_id":     UserIDFromContext(c),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		for ctxKey, field := range contextLogFields {
			if v := c.GetString(ctxKey); v != "" {
				fields[field] = v
			}
		}

		if status >= http.StatusInternalServerError {
			telemetry.Warn("request.complete", fields)
			return
		}
		telemetry.Info("request.complete", fields)
	}
}
