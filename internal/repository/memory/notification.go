package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

type notificationRepo struct{ s *Store }

func (r *notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return r.s.write(func(d *data) error {
		if _, exists := d.notifications[n.ID]; exists {
			return apperrors.Conflict("notification " + n.ID.String() + " already exists")
		}
		cp := *n
		d.notifications[n.ID] = &cp
		d.notificationOrder = append(d.notificationOrder, n.ID)
		return nil
	})
}

func (r *notificationRepo) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.s.write(func(d *data) error {
		n, ok := d.notifications[id]
		if !ok || !n.Unread() {
			return nil
		}
		cp := *n
		cp.ReadAt = &at
		d.notifications[id] = &cp
		return nil
	})
}

func (r *notificationRepo) List(ctx context.Context, role model.Role, unreadOnly bool, limit int) ([]*model.Notification, error) {
	out := make([]*model.Notification, 0)
	err := r.s.read(func(d *data) error {
		for i := len(d.notificationOrder) - 1; i >= 0; i-- {
			n := d.notifications[d.notificationOrder[i]]
			if n.Role != role || (unreadOnly && !n.Unread()) {
				continue
			}
			cp := *n
			out = append(out, &cp)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

func (r *notificationRepo) UnreadCount(ctx context.Context, role model.Role) (int, error) {
	count := 0
	err := r.s.read(func(d *data) error {
		for _, n := range d.notifications {
			if n.Role == role && n.Unread() {
				count++
			}
		}
		return nil
	})
	return count, err
}
