package patient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/longevaiapp/EVEREST-sub000/internal/middleware"
	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/patient"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
	"github.com/longevaiapp/EVEREST-sub000/pkg/httputil"
)

// Workflow is the part of the engine that creates and edits patients.
type Workflow interface {
	CheckIn(ctx context.Context, in patient.CheckInInput, actor model.Actor) (*model.Patient, error)
	UpdatePatient(ctx context.Context, id uuid.UUID, pp model.PatientPatch, actor model.Actor) (*model.Patient, error)
}

type Reader interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	List(ctx context.Context, filter model.PatientFilter) ([]*model.Patient, error)
}

type TaskLister interface {
	ListByPatient(ctx context.Context, patientID uuid.UUID, openOnly bool) ([]*model.Task, error)
}

type Handler struct {
	workflow Workflow
	patients Reader
	tasks    TaskLister
}

func NewHandler(workflow Workflow, patients Reader, tasks TaskLister) *Handler {
	return &Handler{
		workflow: workflow,
		patients: patients,
		tasks:    tasks,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.POST("", h.CheckIn)
		patients.GET("", h.ListPatients)
		patients.GET("/:id", h.GetPatient)
		patients.PATCH("/:id", h.UpdatePatient)
		patients.GET("/:id/history", h.GetHistory)
		patients.GET("/:id/tasks", h.ListTasks)
	}
}

func (h *Handler) CheckIn(c *gin.Context) {
	var req patient.CheckInInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err)
		return
	}

	p, err := h.workflow.CheckIn(c.Request.Context(), req, middleware.ActorFrom(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, p)
}

// ListPatients accepts ?state=A,B (repeatable) and ?limit=N.
func (h *Handler) ListPatients(c *gin.Context) {
	var filter model.PatientFilter
	for _, raw := range c.QueryArray("state") {
		for _, s := range strings.Split(raw, ",") {
			st := model.State(strings.ToUpper(strings.TrimSpace(s)))
			if st == "" {
				continue
			}
			if !st.Valid() {
				httputil.RespondWithError(c, apperrors.Validation(fmt.Sprintf("unknown state %q", s), nil))
				return
			}
			filter.States = append(filter.States, st)
		}
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httputil.RespondWithError(c, apperrors.Validation("limit must be a non-negative integer", err))
			return
		}
		filter.Limit = limit
	}

	list, err := h.patients.List(c.Request.Context(), filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, ok := httputil.ParamUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.patients.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	id, ok := httputil.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req model.PatientPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err)
		return
	}

	p, err := h.workflow.UpdatePatient(c.Request.Context(), id, req, middleware.ActorFrom(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) GetHistory(c *gin.Context) {
	id, ok := httputil.ParamUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.patients.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p.History)
}

func (h *Handler) ListTasks(c *gin.Context) {
	id, ok := httputil.ParamUUID(c, "id")
	if !ok {
		return
	}

	if _, err := h.patients.Get(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	tasks, err := h.tasks.ListByPatient(c.Request.Context(), id, httputil.QueryBool(c, "open", true))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, tasks)
}
