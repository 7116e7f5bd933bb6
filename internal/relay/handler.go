package relay

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"voicecare-backend/internal/calls"
	"voicecare-backend/internal/events"
	"voicecare-backend/internal/shared/server/respond"
)

const maxEventBody = 1 << 20 // 1MB

// Handler exposes the relay's internal HTTP surface: storage event push,
// the asynchronous analysis callback and replays.
type Handler struct {
	Service   *Service
	Runner    *Runner
	KeyPrefix string
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, runner *Runner, keyPrefix string) *Handler {
	return &Handler{Service: svc, Runner: runner, KeyPrefix: keyPrefix}
}

// RegisterRoutes attaches relay routes. Callers guard rg with the internal token.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/events/storage", h.storageEvent)
	rg.POST("/analysis-callback", h.analysisCallback)
	rg.POST("/calls/:userId/:callId/replay", h.replay)
}

func (h *Handler) storageEvent(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEventBody))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_body", "failed to read body", nil)
		return
	}
	evs, err := DecodeStorageEvent(body, h.KeyPrefix)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_event", err.Error(), nil)
		return
	}
	for _, ev := range evs {
		h.Runner.Submit(c.Request.Context(), ev)
	}
	respond.Accepted(c, gin.H{"accepted": len(evs)})
}

// DecodeStorageEvent accepts either a Pub/Sub push envelope carrying a Cloud
// Storage notification or an S3 event notification. Non-finalize
// notifications decode to no events.
func DecodeStorageEvent(body []byte, keyPrefix string) ([]events.Finalize, error) {
	var probe struct {
		Message json.RawMessage `json:"message"`
		Records json.RawMessage `json:"Records"`
		Event   string          `json:"Event"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, errors.New("event body is not JSON")
	}
	switch {
	case len(probe.Message) > 0:
		ev, err := events.DecodePubSubPush(body)
		if errors.Is(err, events.ErrNotFinalize) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		ev.URI = ev.StorageURI()
		ev.Key = events.TrimKeyPrefix(ev.Key, keyPrefix)
		return []events.Finalize{ev}, nil
	case len(probe.Records) > 0:
		return events.DecodeS3Notification(body, keyPrefix)
	case probe.Event == "s3:TestEvent":
		return nil, nil
	default:
		return nil, errors.New("unrecognized event body")
	}
}

type callbackRequest struct {
	UserID     string          `json:"user_id"`
	SessionID  string          `json:"session_id"`
	AnalysisID string          `json:"analysis_id"`
	Status     string          `json:"status"`
	Error      string          `json:"error"`
	Result     json.RawMessage `json:"result"`
}

func (h *Handler) analysisCallback(c *gin.Context) {
	var req callbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_body", "invalid JSON body", nil)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.UserID == "" || req.SessionID == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_body", "user_id and session_id are required", nil)
		return
	}
	errMsg := strings.TrimSpace(req.Error)
	if errMsg == "" && strings.EqualFold(req.Status, "failed") {
		errMsg = "analysis service reported failure"
	}

	out, err := h.Service.CompleteAsync(c.Request.Context(), CallbackInput{
		UserID:     req.UserID,
		CallID:     req.SessionID,
		AnalysisID: strings.TrimSpace(req.AnalysisID),
		Result:     req.Result,
		Error:      errMsg,
	})
	switch {
	case errors.Is(err, ErrCallbackMismatch):
		respond.Error(c, http.StatusConflict, "analysis_mismatch", err.Error(), nil)
		return
	case err != nil:
		respond.Error(c, http.StatusInternalServerError, "callback_failed", "failed to record analysis result", nil)
		return
	}
	respond.OK(c, gin.H{"outcome": out})
}

func (h *Handler) replay(c *gin.Context) {
	userID := c.Param("userId")
	callID := c.Param("callId")
	rec, err := h.Service.Calls.Get(c.Request.Context(), userID, callID)
	if errors.Is(err, calls.ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "not_found", "call not found", nil)
		return
	}
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "lookup_failed", "failed to load call", nil)
		return
	}
	if rec.FilePath == "" {
		respond.Error(c, http.StatusConflict, "no_recording", ErrNothingToReplay.Error(), nil)
		return
	}
	if rec.AnalysisStatus.Busy() {
		respond.Error(c, http.StatusConflict, "busy", "call is "+string(rec.AnalysisStatus), nil)
		return
	}
	h.Runner.Replay(c.Request.Context(), userID, callID)
	respond.Accepted(c, gin.H{"callId": callID, "analysisStatus": rec.AnalysisStatus})
}
