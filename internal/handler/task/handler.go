package task

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
	List(ctx context.Context, role model.Role) ([]*model.Task, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Task, error)
	Complete(ctx context.Context, role model.Role, id uuid.UUID) error
}

// Handler serves the per-role work queues.
type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	tasks := r.Group("/roles/:role/tasks")
	{
		tasks.GET("", h.ListTasks)
		tasks.POST("/:taskId/complete", h.CompleteTask)
	}
	r.GET("/tasks/:taskId", h.GetTask)
}

func roleParam(c *gin.Context) (model.Role, bool) {
	role, ok := model.ParseRole(c.Param("role"))
	if !ok {
		httputil.RespondWithError(c, apperrors.Validation(fmt.Sprintf("unknown role %q", c.Param("role")), nil))
	}
	return role, ok
}

func (h *Handler) ListTasks(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}

	tasks, err := h.service.List(c.Request.Context(), role)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, tasks)
}

func (h *Handler) GetTask(c *gin.Context) {
	id, ok := httputil.ParamUUID(c, "taskId")
	if !ok {
		return
	}

	t, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, t)
}

// CompleteTask is idempotent: completing an absent task still answers 204.
func (h *Handler) CompleteTask(c *gin.Context) {
	role, ok := roleParam(c)
	if !ok {
		return
	}
	id, ok := httputil.ParamUUID(c, "taskId")
	if !ok {
		return
	}

	if err := h.service.Complete(c.Request.Context(), role, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
