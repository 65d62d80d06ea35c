// Package billing derives what a visit costs so far. It never stores
// anything; every call recomputes from the clinical record.
package billing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	"github.com/longevaiapp/EVEREST-sub000/internal/repository"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

type LineKind string

const (
	LineHospitalization LineKind = "hospitalization"
	LineMedication      LineKind = "medication"
	LineStudy           LineKind = "study"
)

type Line struct {
	Kind        LineKind `json:"kind"`
	Description string   `json:"description"`
	Quantity    int      `json:"quantity"`
	UnitCost    float64  `json:"unit_cost"`
	Amount      float64  `json:"amount"`
}

type Breakdown struct {
	PatientID       uuid.UUID `json:"patient_id"`
	Hospitalization float64   `json:"hospitalization"`
	Medication      float64   `json:"medication"`
	Studies         float64   `json:"studies"`
	Total           float64   `json:"total"`
	Paid            float64   `json:"paid"`
	Balance         float64   `json:"balance"`
	Lines           []Line    `json:"lines"`
	ComputedAt      time.Time `json:"computed_at"`
}

type Service struct {
	store repository.Store
	rates RateProvider
	now   func() time.Time
}

func NewService(store repository.Store, rates RateProvider, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, rates: rates, now: now}
}

// TotalCost adds up hospital days at the daily rate of each stay, every
// administered dose and every requested study.
func (s *Service) TotalCost(ctx context.Context, patientID uuid.UUID) (*Breakdown, error) {
	p, err := s.store.Patients().Get(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	stays, err := s.store.Hospitalizations().List(ctx, model.HospitalizationFilter{PatientID: &patientID})
	if err != nil {
		return nil, fmt.Errorf("failed to list hospitalizations: %w", err)
	}

	now := s.now()
	b := &Breakdown{PatientID: patientID, Lines: make([]Line, 0), ComputedAt: now}

	for _, h := range stays {
		rate, ok := s.rates.DailyRate(h.Type)
		if !ok {
			return nil, apperrors.Validation(fmt.Sprintf("no daily rate configured for %s", h.Type), nil)
		}
		days := StayDays(h, now)
		b.add(&b.Hospitalization, Line{
			Kind:        LineHospitalization,
			Description: fmt.Sprintf("%s hospitalization", h.Type),
			Quantity:    days,
			UnitCost:    rate,
		})

		for _, a := range h.Administrations {
			if a.Status != model.AdministrationAdministered {
				continue
			}
			item, ok := h.TherapyItem(a.TherapyItemID)
			if !ok {
				continue
			}
			b.add(&b.Medication, Line{
				Kind:        LineMedication,
				Description: item.MedicationName,
				Quantity:    1,
				UnitCost:    item.UnitCost,
			})
		}
	}

	for _, st := range p.Studies {
		b.add(&b.Studies, Line{
			Kind:        LineStudy,
			Description: st.Name,
			Quantity:    1,
			UnitCost:    s.rates.StudyCost(st.Name),
		})
	}

	for _, pay := range p.Payments {
		b.Paid += pay.Amount
	}
	b.Total = round(b.Hospitalization + b.Medication + b.Studies)
	b.Paid = round(b.Paid)
	b.Balance = round(b.Total - b.Paid)
	return b, nil
}

func (b *Breakdown) add(subtotal *float64, l Line) {
	l.Amount = round(float64(l.Quantity) * l.UnitCost)
	*subtotal = round(*subtotal + l.Amount)
	b.Lines = append(b.Lines, l)
}

// StayDays counts started 24 hour periods, at least one. An open stay runs
// until now.
func StayDays(h *model.Hospitalization, now time.Time) int {
	end := now
	if h.DischargedAt != nil {
		end = *h.DischargedAt
	}
	stay := end.Sub(h.AdmittedAt)
	days := int(math.Ceil(stay.Hours() / 24))
	if days < 1 {
		days = 1
	}
	return days
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
