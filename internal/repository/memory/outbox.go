package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

type outboxRepo struct{ s *Store }

func (r *outboxRepo) Create(ctx context.Context, e *model.OutboxEvent) error {
	if e == nil || e.Payload == nil {
		return apperrors.Validation("outbox event payload cannot be nil", nil)
	}
	return r.s.write(func(d *data) error {
		cp := *e
		d.outbox[e.ID] = &cp
		d.outboxOrder = append(d.outboxOrder, e.ID)
		return nil
	})
}

func (r *outboxRepo) GetPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	out := make([]*model.OutboxEvent, 0)
	err := r.s.read(func(d *data) error {
		for _, id := range d.outboxOrder {
			e := d.outbox[id]
			if e.Status != model.OutboxStatusPending {
				continue
			}
			cp := *e
			out = append(out, &cp)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

func (r *outboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.s.write(func(d *data) error {
		e, ok := d.outbox[id]
		if !ok {
			return apperrors.NotFound("outbox event", id)
		}
		e.Status = model.OutboxStatusProcessed
		e.ProcessedAt = &at
		e.Attempts++
		return nil
	})
}

func (r *outboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string, final bool) error {
	return r.s.write(func(d *data) error {
		e, ok := d.outbox[id]
		if !ok {
			return apperrors.NotFound("outbox event", id)
		}
		e.Attempts++
		e.LastError = &reason
		if final {
			e.Status = model.OutboxStatusFailed
		}
		return nil
	})
}

func (r *outboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.s.write(func(d *data) error {
		kept := d.outboxOrder[:0]
		for _, id := range d.outboxOrder {
			e := d.outbox[id]
			if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
				delete(d.outbox, id)
				n++
				continue
			}
			kept = append(kept, id)
		}
		d.outboxOrder = kept
		return nil
	})
	return n, err
}
