package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// organizationHeader mirrors the handler-level tenancy header so request logs
// can be filtered per organization.
const organizationHeader = "X-Organization-ID"

// Logger logs one line per HTTP request: method, path, status, latency,
// client IP, organization and correlation id. Server errors log at Error,
// client errors at Warn.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		requestLogger := logger
		if correlationID := GetCorrelationID(c); correlationID != "" {
			requestLogger = logger.With("correlation_id", correlationID)
		}
		if orgID := c.GetHeader(organizationHeader); orgID != "" {
			requestLogger = requestLogger.With("organization_id", orgID)
		}

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", statusCode,
			"latency", latency,
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
			"bytes", c.Writer.Size(),
		}

		switch {
		case statusCode >= 500:
			requestLogger.Error("HTTP request", attrs...)
		case statusCode >= 400:
			requestLogger.Warn("HTTP request", attrs...)
		default:
			requestLogger.Info("HTTP request", attrs...)
		}
	}
}
