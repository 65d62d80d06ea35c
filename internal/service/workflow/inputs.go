package workflow

import (
	"time"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/care"
)

type AdmitInput = care.AdmitInput

type TriageInput struct {
	Priority model.Priority `json:"priority" validate:"required,oneof=LOW NORMAL HIGH URGENT"`
	Weight   float64        `json:"weight" validate:"gte=0"`
	Notes    string         `json:"notes"`
}

type AssignInput struct {
	DoctorID   string `json:"doctor_id" validate:"required"`
	DoctorName string `json:"doctor_name"`
}

type StudiesInput struct {
	Studies []string `json:"studies" validate:"required,min=1,dive,required"`
}

type ResultsInput struct {
	Results []model.StudyResult `json:"results" validate:"required,min=1,dive"`
}

type PrescriptionInput struct {
	Items []model.PrescriptionItem `json:"items" validate:"required,min=1,dive"`
	Notes string                   `json:"notes"`
}

type SurgeryInput struct {
	Procedure    string    `json:"procedure" validate:"required"`
	ScheduledFor time.Time `json:"scheduled_for" validate:"required"`
}

// CompleteSurgeryInput needs an Admission when Outcome is HOSPITALIZED.
type CompleteSurgeryInput struct {
	Report    string      `json:"report" validate:"required"`
	Outcome   model.State `json:"outcome" validate:"required,oneof=HOSPITALIZED READY_FOR_DISCHARGE"`
	Admission *AdmitInput `json:"admission,omitempty"`
}

type FinishConsultationInput struct {
	Diagnosis string `json:"diagnosis"`
	Notes     string `json:"notes"`
}

type DischargeOrderInput struct {
	Condition    string `json:"condition" validate:"required"`
	Instructions string `json:"instructions"`
}

type DischargeInput struct {
	Summary      string `json:"summary"`
	Instructions string `json:"instructions"`
}

type FollowUpInput struct {
	Date   time.Time `json:"date" validate:"required"`
	Reason string    `json:"reason"`
}

type PaymentInput struct {
	Amount    float64 `json:"amount" validate:"gt=0"`
	Method    string  `json:"method" validate:"required,oneof=cash card transfer insurance"`
	Reference string  `json:"reference"`
}

type GroomingInput struct {
	Services []string `json:"services" validate:"required,min=1,dive,required"`
	Notes    string   `json:"notes"`
}
