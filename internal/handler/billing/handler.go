package billing

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/longevaiapp/EVEREST-sub000/internal/service/billing"
	"github.com/longevaiapp/EVEREST-sub000/pkg/httputil"
)

type Service interface {
	TotalCost(ctx context.Context, patientID uuid.UUID) (*billing.Breakdown, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/patients/:id/billing", h.GetBilling)
}

func (h *Handler) GetBilling(c *gin.Context) {
	id, ok := httputil.ParamUUID(c, "id")
	if !ok {
		return
	}

	breakdown, err := h.service.TotalCost(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, breakdown)
}
