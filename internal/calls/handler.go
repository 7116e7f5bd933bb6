package calls

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"voicecare-backend/internal/shared/server/middleware"
	"voicecare-backend/internal/shared/server/respond"
)

const maxUploadSize = 100 << 20 // 100MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches authenticated call routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/calls", h.upload)
	rg.GET("/calls", h.list)
	rg.GET("/calls/:callId", h.get)
}

// RegisterPublicRoutes attaches unauthenticated routes.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/public/analyses/:callId", h.publicSummary)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	seniorID := c.PostForm("seniorId")
	if seniorID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "seniorId is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	record, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		UserID:      userID,
		SeniorID:    seniorID,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
	}, file)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upload recording", nil)
		}
		return
	}

	c.Set("callId", record.CallID)
	c.Set("seniorId", record.SeniorID)
	respond.Accepted(c, record)
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Set("callId", c.Param("callId"))

	record, err := h.Svc.Get(c.Request.Context(), userID, c.Param("callId"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "call not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch call", nil)
		}
		return
	}

	respond.OK(c, record)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	records, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list calls", nil)
		}
		return
	}

	respond.OK(c, gin.H{"calls": records, "limit": limit, "offset": offset})
}

func (h *Handler) publicSummary(c *gin.Context) {
	summary, err := h.Svc.PublicSummary(c.Request.Context(), c.Param("callId"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found or expired", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		}
		return
	}

	respond.OK(c, gin.H{
		"callId":         summary.CallID,
		"seniorId":       summary.SeniorID,
		"headline":       summary.Headline,
		"emotionalState": summary.EmotionalState,
		"confidence":     summary.Confidence,
		"analysisResult": summary.AnalysisResult,
		"createdAt":      summary.CreatedAt,
		"expiresAt":      summary.ExpiresAt,
	})
}
