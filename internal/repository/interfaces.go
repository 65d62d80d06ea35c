package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
)

// All repository interfaces in one file. Get methods return an
// errors.ErrNotFound AppError for unknown ids.
type (
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		// Update replaces the stored patient. History may only grow.
		Update(ctx context.Context, patient *model.Patient) error
		List(ctx context.Context, filter model.PatientFilter) ([]*model.Patient, error)
	}

	TaskRepository interface {
		Create(ctx context.Context, task *model.Task) error
		Get(ctx context.Context, id uuid.UUID) (*model.Task, error)
		// Complete stamps CompletedAt on an open task of the given role.
		// It reports false when no such open task exists.
		Complete(ctx context.Context, role model.Role, id uuid.UUID, at time.Time) (bool, error)
		// ListOpen returns the open tasks of a role in insertion order.
		ListOpen(ctx context.Context, role model.Role) ([]*model.Task, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID, openOnly bool) ([]*model.Task, error)
	}

	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification) error
		// MarkRead is a no-op for unknown or already read ids.
		MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error
		// List returns the most recent notifications first.
		List(ctx context.Context, role model.Role, unreadOnly bool, limit int) ([]*model.Notification, error)
		UnreadCount(ctx context.Context, role model.Role) (int, error)
	}

	HospitalizationRepository interface {
		Create(ctx context.Context, h *model.Hospitalization) error
		Get(ctx context.Context, id uuid.UUID) (*model.Hospitalization, error)
		Update(ctx context.Context, h *model.Hospitalization) error
		List(ctx context.Context, filter model.HospitalizationFilter) ([]*model.Hospitalization, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// GetPending returns pending events oldest first.
		GetPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error
		// MarkFailed records a failed attempt. The event stays pending unless
		// final is set.
		MarkFailed(ctx context.Context, id uuid.UUID, reason string, final bool) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// Store groups the repositories that a workflow step mutates together.
	Store interface {
		Patients() PatientRepository
		Tasks() TaskRepository
		Notifications() NotificationRepository
		Hospitalizations() HospitalizationRepository
		Outbox() OutboxRepository

		// WithTx runs fn against a transactional view of the store. Every
		// write made through tx is committed together or not at all.
		// Calling WithTx on a transactional view reuses the transaction.
		WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
		Ping(ctx context.Context) error
		Close() error
	}
)
