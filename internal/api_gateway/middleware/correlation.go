package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader carries the request trace id across services
	CorrelationIDHeader = "X-Correlation-ID"

	// CorrelationIDKey is the gin context key holding the correlation ID
	CorrelationIDKey = "correlation_id"
)

// CorrelationID assigns every request a trace id, echoed in the response
// header. A caller-supplied id is kept only when it parses as a UUID;
// anything else is replaced with a fresh one.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationIDHeader)
		if _, err := uuid.Parse(correlationID); err != nil {
			correlationID = uuid.New().String()
		}

		c.Header(CorrelationIDHeader, correlationID)
		c.Set(CorrelationIDKey, correlationID)

		c.Next()
	}
}

// GetCorrelationID returns the request's correlation id, or "" when the
// middleware did not run.
func GetCorrelationID(c *gin.Context) string {
	id, ok := c.Get(CorrelationIDKey)
	if !ok {
		return ""
	}
	correlationID, _ := id.(string)
	return correlationID
}
