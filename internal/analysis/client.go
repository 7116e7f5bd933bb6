package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/oauth2"

	"voicecare-backend/internal/shared/config"
)

const (
	analyzePath     = "/analyze-audio"
	maxResponseBody = 10 << 20 // 10MB
	maxErrorBody    = 512
)

// ErrInvalidResponse is returned when a successful response is not a JSON object.
var ErrInvalidResponse = errors.New("analysis service returned an invalid body")

// HTTPError reports a non-success status from the analysis service.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("analysis service returned %d", e.StatusCode)
	}
	return fmt.Sprintf("analysis service returned %d: %s", e.StatusCode, e.Body)
}

// Request identifies the recording to analyze.
type Request struct {
	StorageURI string
	FileName   string
	UserID     string
	SeniorID   string
	CallID     string
}

// Response is the analysis service's answer. Accepted responses carry only
// an AnalysisID; the result arrives later through the callback.
type Response struct {
	Accepted   bool
	AnalysisID string
	Body       json.RawMessage
	Result     Result
}

// Analyzer submits recordings for analysis.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (Response, error)
}

// Client calls the analysis service over HTTP.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient builds a client for baseURL. A non-empty token is sent as a
// bearer token through an oauth2 static token source.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("analysis service URL is required")
	}
	httpClient := &http.Client{}
	if strings.TrimSpace(token) != "" {
		httpClient = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: strings.TrimSpace(token),
			TokenType:   "Bearer",
		}))
	}
	return &Client{
		baseURL:    baseURL,
		timeout:    config.ClampAnalysisTimeout(timeout),
		httpClient: httpClient,
	}, nil
}

// Timeout returns the effective per-call timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Analyze posts the storage reference as a multipart form. The call is bound
// by the client timeout as well as ctx.
func (c *Client) Analyze(ctx context.Context, req Request) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, contentType, err := encodeForm(req)
	if err != nil {
		return Response{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, body)
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Response{}, fmt.Errorf("analysis request timeout after %s: %w", c.timeout, err)
		}
		return Response{}, fmt.Errorf("analysis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Response{}, fmt.Errorf("read analysis response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(strings.TrimSpace(string(raw)), maxErrorBody)}
	}

	if resp.StatusCode == http.StatusAccepted {
		var accepted struct {
			AnalysisID string `json:"analysis_id"`
		}
		_ = json.Unmarshal(raw, &accepted)
		if accepted.AnalysisID == "" {
			accepted.AnalysisID = req.CallID
		}
		return Response{Accepted: true, AnalysisID: accepted.AnalysisID}, nil
	}

	result, err := Decode(raw)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return Response{AnalysisID: result.AnalysisID, Body: json.RawMessage(raw), Result: result}, nil
}

func encodeForm(req Request) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	fields := []struct{ key, value string }{
		{"storage_uri", req.StorageURI},
		{"filename", req.FileName},
		{"user_id", req.UserID},
		{"senior_id", req.SeniorID},
		{"session_id", req.CallID},
	}
	for _, f := range fields {
		if err := w.WriteField(f.key, f.value); err != nil {
			return nil, "", fmt.Errorf("encode %s: %w", f.key, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

// truncate bounds s to max bytes without splitting a rune. Invalid bytes
// from the remote body are replaced, since the text is stored as a string.
func truncate(s string, max int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

var _ Analyzer = (*Client)(nil)
