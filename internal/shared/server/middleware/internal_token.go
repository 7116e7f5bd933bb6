package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"voicecare-backend/internal/shared/server/respond"
)

const internalTokenHdr = "X-Relay-Token"

// InternalToken guards service-to-service routes: storage event pushes and
// analysis callbacks. The token is read from X-Relay-Token, a bearer
// Authorization header or the token query parameter (Pub/Sub push URLs).
// With no token configured the routes are disabled.
func InternalToken(expected string) gin.HandlerFunc {
	expected = strings.TrimSpace(expected)
	return func(c *gin.Context) {
		if expected == "" {
			respond.Error(c, http.StatusServiceUnavailable, "internal_disabled", "internal endpoints are not configured", nil)
			return
		}
		got := strings.TrimSpace(c.GetHeader(internalTokenHdr))
		if got == "" {
			got, _ = bearerToken(strings.TrimSpace(c.GetHeader("Authorization")))
		}
		if got == "" {
			got = c.Query("token")
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid internal token", nil)
			return
		}
		c.Next()
	}
}
