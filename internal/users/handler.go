package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"voicecare-backend/internal/shared/server/middleware"
	"voicecare-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/me", h.me)
	rg.PUT("/users/me/push-token", h.putPushToken)
	rg.DELETE("/users/me/push-token", h.deletePushToken)
}

func (h *Handler) me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	user, err := h.Svc.GetByID(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{
		"id":                userID,
		"hasPushToken":      user.FCMToken != "",
		"fcmTokenUpdatedAt": user.FCMTokenUpdatedAt,
	})
}

type pushTokenRequest struct {
	Token string `json:"token"`
}

func (h *Handler) putPushToken(c *gin.Context) {
	var req pushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	userID := middleware.UserIDFromContext(c)
	if err := h.Svc.RegisterPushToken(c.Request.Context(), userID, req.Token); err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "token is required", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to save push token", nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deletePushToken(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if err := h.Svc.UnregisterPushToken(c.Request.Context(), userID); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to remove push token", nil)
		return
	}
	c.Status(http.StatusNoContent)
}
