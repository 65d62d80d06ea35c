package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

type taskRepo struct{ s *Store }

func (r *taskRepo) Create(ctx context.Context, t *model.Task) error {
	return r.s.write(func(d *data) error {
		if _, exists := d.tasks[t.ID]; exists {
			return apperrors.Conflict("task " + t.ID.String() + " already exists")
		}
		cp := *t
		d.tasks[t.ID] = &cp
		d.taskOrder = append(d.taskOrder, t.ID)
		return nil
	})
}

func (r *taskRepo) Get(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var out *model.Task
	err := r.s.read(func(d *data) error {
		t, ok := d.tasks[id]
		if !ok {
			return apperrors.NotFound("task", id)
		}
		cp := *t
		out = &cp
		return nil
	})
	return out, err
}

func (r *taskRepo) Complete(ctx context.Context, role model.Role, id uuid.UUID, at time.Time) (bool, error) {
	done := false
	err := r.s.write(func(d *data) error {
		t, ok := d.tasks[id]
		if !ok || t.Role != role || !t.Open() {
			return nil
		}
		cp := *t
		cp.CompletedAt = &at
		d.tasks[id] = &cp
		done = true
		return nil
	})
	return done, err
}

func (r *taskRepo) ListOpen(ctx context.Context, role model.Role) ([]*model.Task, error) {
	return r.collect(func(t *model.Task) bool { return t.Role == role && t.Open() })
}

func (r *taskRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, openOnly bool) ([]*model.Task, error) {
	return r.collect(func(t *model.Task) bool {
		return t.PatientID == patientID && (!openOnly || t.Open())
	})
}

func (r *taskRepo) collect(keep func(*model.Task) bool) ([]*model.Task, error) {
	out := make([]*model.Task, 0)
	err := r.s.read(func(d *data) error {
		for _, id := range d.taskOrder {
			t := d.tasks[id]
			if keep(t) {
				cp := *t
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}
