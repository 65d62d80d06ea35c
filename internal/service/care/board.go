package care

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
)

type BoardEntry struct {
	HospitalizationID      uuid.UUID                 `json:"hospitalization_id"`
	PatientID              uuid.UUID                 `json:"patient_id"`
	PatientName            string                    `json:"patient_name"`
	Type                   model.HospitalizationType `json:"type"`
	AdmittedAt             time.Time                 `json:"admitted_at"`
	Monitoring             Monitoring                `json:"monitoring"`
	LateAdministrations    int                       `json:"late_administrations"`
	PendingAdministrations int                       `json:"pending_administrations"`
}

// Board is the hospitalization dashboard at one instant.
type Board struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Entries     []BoardEntry   `json:"entries"`
	Counts      map[Status]int `json:"counts"`
}

// Tick recomputes the board from scratch for now. Nothing is cached between
// calls and nothing is written.
func (s *Service) Tick(ctx context.Context, now time.Time) (*Board, error) {
	timer := time.Now()
	defer func() { s.metrics.CareTickLatency.Observe(time.Since(timer).Seconds()) }()

	open, err := s.ListOpen(ctx)
	if err != nil {
		return nil, err
	}

	board := &Board{
		GeneratedAt: now,
		Entries:     make([]BoardEntry, 0, len(open)),
		Counts:      make(map[Status]int, len(Statuses)),
	}
	for _, h := range open {
		entry := BoardEntry{
			HospitalizationID: h.ID,
			PatientID:         h.PatientID,
			Type:              h.Type,
			AdmittedAt:        h.AdmittedAt,
			Monitoring:        MonitoringStatus(h, now),
		}
		if p, err := s.patients.Get(ctx, h.PatientID); err == nil {
			entry.PatientName = p.Name
		} else {
			s.log.Warn("hospitalized patient not found", "hospitalization_id", h.ID.String(), "patient_id", h.PatientID.String())
		}
		for _, a := range h.Administrations {
			switch a.EffectiveStatus(now) {
			case model.AdministrationLate:
				entry.LateAdministrations++
			case model.AdministrationPending:
				entry.PendingAdministrations++
			}
		}
		board.Entries = append(board.Entries, entry)
		board.Counts[entry.Monitoring.Status]++
	}
	SortByUrgency(board.Entries)

	for _, st := range Statuses {
		s.metrics.CareBoardPatients.WithLabelValues(string(st)).Set(float64(board.Counts[st]))
	}
	return board, nil
}
