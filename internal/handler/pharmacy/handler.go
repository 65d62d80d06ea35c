package pharmacy

import (
	"github.com/gin-gonic/gin"

	"github.com/longevaiapp/EVEREST-sub000/internal/service/pharmacy"
	"github.com/longevaiapp/EVEREST-sub000/pkg/httputil"
)

type stockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

type Handler struct {
	service pharmacy.Service
}

func NewHandler(service pharmacy.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	meds := r.Group("/medications")
	{
		meds.GET("", h.Search)
		meds.POST("/:medicationId/stock", h.AdjustStock)
	}
}

// Search matches ?q= against medication ids and names; empty lists all.
func (h *Handler) Search(c *gin.Context) {
	meds, err := h.service.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, meds)
}

func (h *Handler) AdjustStock(c *gin.Context) {
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.BadRequest(c, err)
		return
	}

	med, err := h.service.AdjustStock(c.Request.Context(), c.Param("medicationId"), req.Delta)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, med)
}
