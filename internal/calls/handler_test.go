package calls

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewHandler(svc)
	h.RegisterPublicRoutes(router.Group("/api/v1"))
	authed := router.Group("/api/v1", func(c *gin.Context) {
		c.Set("userId", "u1")
		c.Next()
	})
	h.RegisterRoutes(authed)
	return router
}

func TestHandlerUploadAndGet(t *testing.T) {
	svc, _ := newTestService()
	router := newTestRouter(svc)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("seniorId", "s1"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	fileWriter, err := writer.CreateFormFile("file", "call.wav")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write([]byte("RIFFaudio")); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/calls", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}

	var created CallRecord
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.CallID != "call-1" || created.SeniorID != "s1" {
		t.Fatalf("unexpected created record %+v", created)
	}

	getResp := httptest.NewRecorder()
	router.ServeHTTP(getResp, httptest.NewRequest(http.MethodGet, "/api/v1/calls/call-1", nil))
	if getResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", getResp.Code)
	}

	missing := httptest.NewRecorder()
	router.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/api/v1/calls/nope", nil))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.Code)
	}
}

func TestHandlerUploadRequiresSenior(t *testing.T) {
	svc, _ := newTestService()
	router := newTestRouter(svc)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, _ := writer.CreateFormFile("file", "call.wav")
	_, _ = fileWriter.Write([]byte("x"))
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/calls", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestHandlerPublicSummary(t *testing.T) {
	svc, _ := newTestService()
	router := newTestRouter(svc)
	now := svc.Now()
	if err := svc.Summaries.PutSummary(context.Background(), PublicSummary{
		CallID:    "c1",
		Headline:  "calm",
		IsPublic:  true,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("PutSummary: %v", err)
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/public/analyses/c1", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["headline"] != "calm" {
		t.Fatalf("unexpected headline %v", got["headline"])
	}

	expired := httptest.NewRecorder()
	router.ServeHTTP(expired, httptest.NewRequest(http.MethodGet, "/api/v1/public/analyses/other", nil))
	if expired.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", expired.Code)
	}
}
