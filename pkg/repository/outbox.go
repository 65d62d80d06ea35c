package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
)

// OutboxRepository is the slice of the outbox store the relay workers need.
type OutboxRepository interface {
	GetPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, final bool) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
