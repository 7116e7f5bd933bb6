package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "requestId"

// Incoming request id headers, in order of preference. API Gateway and ALB
// set the trace id header when the client does not send its own id.
var requestIDHeaders = []string{"X-Request-Id", "X-Amzn-Trace-Id"}

// RequestID attaches a request ID to context and response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := incomingRequestID(c)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set("X-Request-Id", id)
		c.Next()
	}
}

// RequestIDFromContext fetches the request ID stored by RequestID middleware.
func RequestIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(requestIDKey)
}

func incomingRequestID(c *gin.Context) string {
	for _, h := range requestIDHeaders {
		if v := strings.TrimSpace(c.GetHeader(h)); v != "" && len(v) <= 128 {
			return v
		}
	}
	return ""
}
