// Package workflow exposes the clinical transitions as POST actions on a
// patient. Every action answers with the patient as it is after the step.
package workflow

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/longevaiapp/EVEREST-sub000/internal/middleware"
	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/workflow"
	"github.com/longevaiapp/EVEREST-sub000/pkg/httputil"
)

type Handler struct {
	engine *workflow.Engine
}

func NewHandler(engine *workflow.Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	p := r.Group("/patients/:id")
	{
		p.POST("/triage", action(h.engine.Triage))
		p.POST("/assign", action(h.engine.AssignToDoctor))
		p.POST("/studies", action(h.engine.RequestStudies))
		p.POST("/studies/results", action(h.engine.PostStudyResults))
		p.POST("/prescription", action(h.engine.PrescribeMedication))
		p.POST("/prescription/deliver", bare(h.engine.DeliverMedication))
		p.POST("/surgery", action(h.engine.ScheduleSurgery))
		p.POST("/surgery/start", bare(h.engine.StartSurgery))
		p.POST("/surgery/complete", action(h.engine.CompleteSurgery))
		p.POST("/hospitalize", action(h.engine.Hospitalize))
		p.POST("/consultation/finish", action(h.engine.FinishConsultation))
		p.POST("/discharge-order", action(h.engine.OrderDischarge))
		p.POST("/discharge", action(h.engine.DischargePatient))
		p.POST("/follow-up", action(h.engine.ScheduleFollowUp))
		p.POST("/payments", action(h.engine.RegisterPayment))
		p.POST("/grooming", action(h.engine.RequestGrooming))
	}
}

type operation[T any] func(ctx context.Context, id uuid.UUID, in T, actor model.Actor) (*model.Patient, error)

// action binds the JSON body into T and runs op. Inputs are validated by
// the engine, not by gin.
func action[T any](op operation[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httputil.ParamUUID(c, "id")
		if !ok {
			return
		}
		var in T
		if err := c.ShouldBindJSON(&in); err != nil {
			httputil.BadRequest(c, err)
			return
		}
		respond(c, func(ctx context.Context) (*model.Patient, error) {
			return op(ctx, id, in, middleware.ActorFrom(c))
		})
	}
}

// bare runs an operation that takes no body.
func bare(op func(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Patient, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httputil.ParamUUID(c, "id")
		if !ok {
			return
		}
		respond(c, func(ctx context.Context) (*model.Patient, error) {
			return op(ctx, id, middleware.ActorFrom(c))
		})
	}
}

func respond(c *gin.Context, run func(ctx context.Context) (*model.Patient, error)) {
	p, err := run(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}
