package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"voicecare-backend/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	restore := telemetry.SetLogger(zap.New(core))
	defer restore()

	router := gin.New()
	router.Use(RequestID(), Auth(nil, "dev"), Logging())
	router.GET("/calls/:callId", func(c *gin.Context) {
		c.Set("callId", c.Param("callId"))
		c.Set("seniorId", "s1")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/calls/c1", nil)
	req.Header.Set("X-User-Id", "u1")
	req.Header.Set("X-Request-Id", "req-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	entries := logs.FilterMessage("request.complete").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 request log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	for _, key := range []string{"request_id", "user_id", "call_id", "senior_id", "duration_ms", "status"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if fields["request_id"] != "req-1" {
		t.Fatalf("unexpected request_id: %v", fields["request_id"])
	}
	if fields["user_id"] != "u1" {
		t.Fatalf("unexpected user_id: %v", fields["user_id"])
	}
	if fields["call_id"] != "c1" {
		t.Fatalf("unexpected call_id: %v", fields["call_id"])
	}
	if resp.Header().Get("X-Request-Id") != "req-1" {
		t.Fatalf("expected request id echoed")
	}
}
