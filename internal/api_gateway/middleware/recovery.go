package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery catches handler panics, logs them with a stack trace and the
// request's correlation id, and answers 500 without killing the process.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				handlePanic(c, logger, r)
			}
		}()

		c.Next()
	}
}

func handlePanic(c *gin.Context, logger *slog.Logger, recovered any) {
	correlationID := GetCorrelationID(c)

	logger.Error("Panic recovered",
		"error", recovered,
		"stack", string(debug.Stack()),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"correlation_id", correlationID,
	)

	body := gin.H{
		"error": gin.H{
			"code":    "INTERNAL_SERVER_ERROR",
			"message": "An internal server error occurred",
		},
	}
	if correlationID != "" {
		body["correlation_id"] = correlationID
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}
