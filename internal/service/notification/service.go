package notification

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

const defaultListLimit = 100

// Service is the per-role notification log. It is a local audit log with no
// delivery guarantee.
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

// Publish stores n unread at the head of its role's log.
func (s *Service) Publish(ctx context.Context, n model.Notification) (uuid.UUID, error) {
	if err := validateNotification(&n); err != nil {
		return uuid.Nil, err
	}

	n.ID = uuid.New()
	n.CreatedAt = s.now()
	n.ReadAt = nil
	n.Priority = n.Priority.OrDefault()

	if err := s.store.Notifications().Create(ctx, &n); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return n.ID, nil
}

// MarkRead is silent for unknown ids.
func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Notifications().MarkRead(ctx, id, s.now()); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, role model.Role, unreadOnly bool) ([]*model.Notification, error) {
	list, err := s.store.Notifications().List(ctx, role, unreadOnly, defaultListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}

func (s *Service) UnreadCount(ctx context.Context, role model.Role) (int, error) {
	n, err := s.store.Notifications().UnreadCount(ctx, role)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return n, nil
}

func validateNotification(n *model.Notification) error {
	if _, ok := model.ParseRole(string(n.Role)); !ok {
		return apperrors.Validation(fmt.Sprintf("unknown role %q", n.Role), nil)
	}
	if strings.TrimSpace(n.Title) == "" {
		return apperrors.Validation("notification title is required", nil)
	}
	if n.Type == "" {
		return apperrors.Validation("notification type is required", nil)
	}
	return nil
}
