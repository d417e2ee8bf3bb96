package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestLogger logs every request with a generated request id at a level
// matching the response status.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Set("request_id", requestID)

		c.Next()

		attrs := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		}

		switch {
		case c.Writer.Status() >= 500:
			slog.Error("Request failed", attrs...)
		case c.Writer.Status() >= 400:
			slog.Warn("Request rejected", attrs...)
		default:
			slog.Debug("Request served", attrs...)
		}
	}
}
