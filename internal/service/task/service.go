package task

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

// Service routes tasks to per-role FIFO queues.
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

func (s *Service) With(tx repository.Store) *Service {
	return &Service{store: tx, now: s.now}
}

// Create appends t to the tail of role's queue and returns its new id.
func (s *Service) Create(ctx context.Context, role model.Role, t model.Task) (uuid.UUID, error) {
	if _, ok := model.ParseRole(string(role)); !ok {
		return uuid.Nil, apperrors.Validation(fmt.Sprintf("unknown role %q", role), nil)
	}
	if strings.TrimSpace(t.Title) == "" {
		return uuid.Nil, apperrors.Validation("task title is required", nil)
	}

	t.ID = uuid.New()
	t.Role = role
	t.CreatedAt = s.now()
	t.CompletedAt = nil
	t.Priority = t.Priority.OrDefault()

	if err := s.store.Tasks().Create(ctx, &t); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create task: %w", err)
	}
	return t.ID, nil
}

// Complete removes the task from role's queue. Completing an absent or
// already completed task is a no-op.
func (s *Service) Complete(ctx context.Context, role model.Role, id uuid.UUID) error {
	if _, err := s.store.Tasks().Complete(ctx, role, id, s.now()); err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	return nil
}

// CompleteForPatient completes the open tasks of role for a patient whose
// details are of the given kind; an empty kind matches every task. It
// returns the completed tasks.
func (s *Service) CompleteForPatient(ctx context.Context, role model.Role, patientID uuid.UUID, kind model.DetailsKind) ([]*model.Task, error) {
	open, err := s.store.Tasks().ListByPatient(ctx, patientID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient tasks: %w", err)
	}

	var done []*model.Task
	now := s.now()
	for _, t := range open {
		if (role != "" && t.Role != role) || (kind != "" && t.Details.Kind != kind) {
			continue
		}
		ok, err := s.store.Tasks().Complete(ctx, t.Role, t.ID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to complete task: %w", err)
		}
		if ok {
			done = append(done, t)
		}
	}
	return done, nil
}

// List returns role's queue in insertion order.
func (s *Service) List(ctx context.Context, role model.Role) ([]*model.Task, error) {
	tasks, err := s.store.Tasks().ListOpen(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, openOnly bool) ([]*model.Task, error) {
	tasks, err := s.store.Tasks().ListByPatient(ctx, patientID, openOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient tasks: %w", err)
	}
	return tasks, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	t, err := s.store.Tasks().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}
