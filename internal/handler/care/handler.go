package care

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/longevaiapp/EVEREST-sub000/internal/middleware"
	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/care"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
	"github.com/longevaiapp/EVEREST-sub000/pkg/httputil"
)

// Handler serves the hospitalization ward: the board, the records and the
// bedside actions of the nursing staff.
type Handler struct {
	service *care.Service
	now     func() time.Time
}

func NewHandler(service *care.Service, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{service: service, now: now}
}

// HospitalizationView is a record together with its monitoring status and
// the effective status of every dose.
type HospitalizationView struct {
	*model.Hospitalization
	Monitoring care.Monitoring `json:"monitoring"`
	Schedule   []DoseView      `json:"schedule"`
}

type DoseView struct {
	model.MedicationAdministration
	EffectiveStatus model.AdministrationStatus `json:"effective_status"`
}

type omitRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	hosp := r.Group("/hospitalizations")
	{
		hosp.GET("", h.ListOpen)
		hosp.GET("/board", h.Board)
		hosp.GET("/:id", h.Get)
		hosp.POST("/:id/vitals", h.RecordVitalSigns)
		hosp.POST("/:id/schedule", h.GenerateSchedule)
		hosp.POST("/:id/therapy", h.AddTherapyItem)
		hosp.DELETE("/:id/therapy/:itemId", h.DeactivateTherapyItem)
	}
	admin := r.Group("/administrations/:adminId")
	{
		admin.POST("/administer", h.Administer)
		admin.POST("/omit", h.Omit)
	}
	r.GET("/patients/:id/hospitalizations", h.ListByPatient)
}

func (h *Handler) view(rec *model.Hospitalization, now time.Time) HospitalizationView {
	v := HospitalizationView{
		Hospitalization: rec,
		Monitoring:      care.MonitoringStatus(rec, now),
		Schedule:        make([]DoseView, 0, len(rec.Administrations)),
	}
	for _, a := range rec.Administrations {
		v.Schedule = append(v.Schedule, DoseView{MedicationAdministration: a, EffectiveStatus: a.EffectiveStatus(now)})
	}
	return v
}

func (h *Handler) ListOpen(c *gin.Context) {
	list, err := h.service.ListOpen(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	now := h.now()
	out := make([]HospitalizationView, 0, len(list))
	for _, rec := range list {
		out = append(out, h.view(rec, now))
	}
	httputil.RespondWithSuccess(c, out)
}

// Board is recomputed on every request.
func (h *Handler) Board(c *gin.Context) {
	board, err := h.service.Tick(c.Request.Context(), h.now())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, board)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := httputil.ParamUUID(c, "id")
	if !ok {
		return
	}

	rec, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, h.view(rec, h.now()))
}

func (h *Handler) ListByPatient(c *gin.Context) {
	id, ok := httputil.ParamUUID(c, "id")
	if !ok {
		return
	}

	list, err := h.service.ListByPatient(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

func (h *Handler) RecordVitalSigns(c *gin.Context) {
	id, ok := httputil.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req care.VitalSignsInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err)
		return
	}

	rec, err := h.service.RecordVitalSigns(c.Request.Context(), id, req, middleware.ActorFrom(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, h.view(rec, h.now()))
}

// GenerateSchedule answers with the newly booked slots only.
func (h *Handler) GenerateSchedule(c *gin.Context) {
	id, ok := httputil.ParamUUID(c, "id")
	if !ok {
		return
	}

	slots, err := h.service.GenerateDailySchedule(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if slots == nil {
		slots = []model.MedicationAdministration{}
	}
	httputil.RespondWithSuccess(c, slots)
}

func (h *Handler) AddTherapyItem(c *gin.Context) {
	id, ok := httputil.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req care.TherapyItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err)
		return
	}

	item, err := h.service.AddTherapyItem(c.Request.Context(), id, req, middleware.ActorFrom(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, item)
}

func (h *Handler) DeactivateTherapyItem(c *gin.Context) {
	id, ok := httputil.ParamUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := httputil.ParamUUID(c, "itemId")
	if !ok {
		return
	}

	if err := h.service.DeactivateTherapyItem(c.Request.Context(), id, itemID, middleware.ActorFrom(c)); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Administer(c *gin.Context) {
	id, ok := httputil.ParamUUID(c, "adminId")
	if !ok {
		return
	}

	dose, err := h.service.AdministerMedication(c.Request.Context(), id, middleware.ActorFrom(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, dose)
}

func (h *Handler) Omit(c *gin.Context) {
	id, ok := httputil.ParamUUID(c, "adminId")
	if !ok {
		return
	}
	var req omitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err)
		return
	}
	if req.Reason == "" {
		httputil.RespondWithError(c, apperrors.Validation("reason is required", nil))
		return
	}

	dose, err := h.service.OmitMedication(c.Request.Context(), id, req.Reason, middleware.ActorFrom(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, dose)
}
