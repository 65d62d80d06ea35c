package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

type hospitalizationRepo struct{ s *Store }

func (r *hospitalizationRepo) Create(ctx context.Context, h *model.Hospitalization) error {
	return r.s.write(func(d *data) error {
		if _, exists := d.hosps[h.ID]; exists {
			return apperrors.Conflict("hospitalization " + h.ID.String() + " already exists")
		}
		d.hosps[h.ID] = h.Clone()
		d.hospOrder = append(d.hospOrder, h.ID)
		return nil
	})
}

func (r *hospitalizationRepo) Get(ctx context.Context, id uuid.UUID) (*model.Hospitalization, error) {
	var out *model.Hospitalization
	err := r.s.read(func(d *data) error {
		h, ok := d.hosps[id]
		if !ok {
			return apperrors.NotFound("hospitalization", id)
		}
		out = h.Clone()
		return nil
	})
	return out, err
}

func (r *hospitalizationRepo) Update(ctx context.Context, h *model.Hospitalization) error {
	return r.s.write(func(d *data) error {
		if _, ok := d.hosps[h.ID]; !ok {
			return apperrors.NotFound("hospitalization", h.ID)
		}
		d.hosps[h.ID] = h.Clone()
		return nil
	})
}

func (r *hospitalizationRepo) List(ctx context.Context, filter model.HospitalizationFilter) ([]*model.Hospitalization, error) {
	out := make([]*model.Hospitalization, 0)
	err := r.s.read(func(d *data) error {
		for _, id := range d.hospOrder {
			h := d.hosps[id]
			if filter.OpenOnly && !h.IsOpen() {
				continue
			}
			if filter.PatientID != nil && h.PatientID != *filter.PatientID {
				continue
			}
			out = append(out, h.Clone())
		}
		return nil
	})
	return out, err
}
