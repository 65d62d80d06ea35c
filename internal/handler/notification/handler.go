package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
	"github.com/longevaiapp/EVEREST-sub000/pkg/httputil"
)

type Service interface {
	List(ctx context.Context, role model.Role, unreadOnly bool) ([]*model.Notification, error)
	UnreadCount(ctx context.Context, role model.Role) (int, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/roles/:role/notifications", h.ListNotifications)
	r.GET("/roles/:role/notifications/unread-count", h.UnreadCount)
	r.POST("/notifications/:notificationId/read", h.MarkRead)
}

func roleParam(c *gin.Context) (model.Role, bool) {
	role, ok := model.ParseRole(c.Param("role"))
	if !ok {
		httputil.RespondWithError(c, apperrors.Validation(fmt.Sprintf("unknown role %q", c.Param("role")), nil))
	}
	return role, ok
}

func (h *Handler) ListNotifications(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}

	list, err := h.service.List(c.Request.Context(), role, httputil.QueryBool(c, "unread", false))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}

	n, err := h.service.UnreadCount(c.Request.Context(), role)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"role": role, "unread": n})
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, ok := httputil.ParamUUID(c, "notificationId")
	if !ok {
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
