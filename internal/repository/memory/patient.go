package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

type patientRepo struct{ s *Store }

func (r *patientRepo) Create(ctx context.Context, p *model.Patient) error {
	return r.s.write(func(d *data) error {
		if _, exists := d.patients[p.ID]; exists {
			return apperrors.Conflict("patient " + p.ID.String() + " already exists")
		}
		d.patients[p.ID] = p.Clone()
		d.patientOrder = append(d.patientOrder, p.ID)
		return nil
	})
}

func (r *patientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var out *model.Patient
	err := r.s.read(func(d *data) error {
		p, ok := d.patients[id]
		if !ok {
			return apperrors.NotFound("patient", id)
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (r *patientRepo) Update(ctx context.Context, p *model.Patient) error {
	return r.s.write(func(d *data) error {
		stored, ok := d.patients[p.ID]
		if !ok {
			return apperrors.NotFound("patient", p.ID)
		}
		if len(p.History) < len(stored.History) {
			return apperrors.Conflict("patient history is append-only")
		}
		d.patients[p.ID] = p.Clone()
		return nil
	})
}

func (r *patientRepo) List(ctx context.Context, filter model.PatientFilter) ([]*model.Patient, error) {
	out := make([]*model.Patient, 0)
	err := r.s.read(func(d *data) error {
		for _, id := range d.patientOrder {
			p := d.patients[id]
			if !filter.Matches(p) {
				continue
			}
			out = append(out, p.Clone())
			if filter.Limit > 0 && len(out) == filter.Limit {
				break
			}
		}
		return nil
	})
	return out, err
}
