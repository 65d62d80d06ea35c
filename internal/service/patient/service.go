package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	"github.com/longevaiapp/EVEREST-sub000/internal/repository"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

// CheckInInput describes a patient arriving at reception.
type CheckInInput struct {
	Name     string         `json:"name" validate:"required"`
	Species  string         `json:"species" validate:"required"`
	Breed    string         `json:"breed"`
	Owner    model.Owner    `json:"owner"`
	Reason   string         `json:"reason"`
	Priority model.Priority `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
}

// Service is the patient state store: the canonical clinical state of each
// patient plus its append-only history.
type Service struct {
	store repository.Store
	now   func() time.Time
}

func NewService(store repository.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// With returns a copy of the service bound to tx.
func (s *Service) With(tx repository.Store) *Service {
	return &Service{store: tx, now: s.now}
}

// Create registers a new patient in ARRIVED.
func (s *Service) Create(ctx context.Context, in CheckInInput, actor model.Actor) (*model.Patient, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Species) == "" {
		return nil, apperrors.Validation("patient name and species are required", nil)
	}

	now := s.now()
	priority := in.Priority.OrDefault()
	p := &model.Patient{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(in.Name),
		Species:   strings.TrimSpace(in.Species),
		Breed:     strings.TrimSpace(in.Breed),
		Owner:     in.Owner,
		State:     model.StateArrived,
		Priority:  priority,
		Reason:    in.Reason,
		ArrivedAt: now,
		UpdatedAt: now,
		History: []model.HistoryEntry{{
			Timestamp: now,
			Actor:     actor,
			Action:    model.EventCheckedIn,
			Details:   model.CheckInPayload(model.CheckInDetails{Reason: in.Reason, Priority: priority}),
		}},
	}

	if err := s.store.Patients().Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	p, err := s.store.Patients().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, filter model.PatientFilter) ([]*model.Patient, error) {
	patients, err := s.store.Patients().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

// Transition moves the patient along one edge of the clinical graph and
// records the change in its history.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to model.State, actor model.Actor) (*model.Patient, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(p.State, to) {
		return nil, apperrors.IllegalTransition(string(p.State), string(to))
	}

	now := s.now()
	from := p.State
	p.State = to
	p.UpdatedAt = now
	p.History = append(p.History, model.HistoryEntry{
		Timestamp: now,
		Actor:     actor,
		Action:    model.EventStateChanged,
		Details:   model.TransitionPayload(from, to),
	})

	if err := s.store.Patients().Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to transition patient: %w", err)
	}
	return p, nil
}

// RecordHistory appends entry to the patient's history. A zero timestamp is
// filled with the current time.
func (s *Service) RecordHistory(ctx context.Context, id uuid.UUID, entry model.HistoryEntry) error {
	if entry.Action == "" {
		return apperrors.Validation("history entry action is required", nil)
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	p.History = append(p.History, entry)
	p.UpdatedAt = entry.Timestamp

	if err := s.store.Patients().Update(ctx, p); err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	return nil
}

// Patch merges non-state fields. Discharged patients are read-only.
func (s *Service) Patch(ctx context.Context, id uuid.UUID, patch model.PatientPatch, actor model.Actor) (*model.Patient, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.State.IsTerminal() {
		return nil, apperrors.Validation("patient "+id.String()+" is discharged", nil)
	}
	if patch.Priority != nil && (*patch.Priority).Rank() == 0 && *patch.Priority != model.PriorityLow {
		return nil, apperrors.Validation(fmt.Sprintf("unknown priority %q", *patch.Priority), nil)
	}

	now := s.now()
	changed := patch.Apply(p, now)
	if len(changed) == 0 {
		return p, nil
	}
	p.UpdatedAt = now
	p.History = append(p.History, model.HistoryEntry{
		Timestamp: now,
		Actor:     actor,
		Action:    model.EventPatientUpdated,
		Details:   model.PatchPayload(changed...),
	})

	if err := s.store.Patients().Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to patch patient: %w", err)
	}
	return p, nil
}
