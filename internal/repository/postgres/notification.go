package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
)

const notificationColumns = `id, role, type, title, message, priority, patient_id, created_at, read_at, details`

type notificationRow struct {
	ID        uuid.UUID            `db:"id"`
	Role      string               `db:"role"`
	Type      string               `db:"type"`
	Title     string               `db:"title"`
	Message   string               `db:"message"`
	Priority  string               `db:"priority"`
	PatientID uuid.NullUUID        `db:"patient_id"`
	CreatedAt time.Time            `db:"created_at"`
	ReadAt    *time.Time           `db:"read_at"`
	Details   jsonb[model.Details] `db:"details"`
}

type notificationRepository struct {
	db sqlx.ExtContext
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES (:id, :role, :type, :title, :message, :priority, :patient_id, :created_at, :read_at, :details)
	`
	row := notificationRow{
		ID:        n.ID,
		Role:      string(n.Role),
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Priority:  string(n.Priority),
		CreatedAt: n.CreatedAt,
		ReadAt:    n.ReadAt,
		Details:   jsonOf(n.Details),
	}
	if n.PatientID != nil {
		row.PatientID = uuid.NullUUID{UUID: *n.PatientID, Valid: true}
	}
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, row); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE notifications SET read_at = $1 WHERE id = $2 AND read_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (r *notificationRepository) List(ctx context.Context, role model.Role, unreadOnly bool, limit int) ([]*model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE role = $1`
	args := []interface{}{string(role)}
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY seq DESC`
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $2`
	}

	var rows []notificationRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	out := make([]*model.Notification, 0, len(rows))
	for _, row := range rows {
		n := &model.Notification{
			ID:        row.ID,
			Role:      model.Role(row.Role),
			Type:      model.EventType(row.Type),
			Title:     row.Title,
			Message:   row.Message,
			Priority:  model.Priority(row.Priority),
			CreatedAt: row.CreatedAt,
			ReadAt:    row.ReadAt,
			Details:   row.Details.V,
		}
		if row.PatientID.Valid {
			id := row.PatientID.UUID
			n.PatientID = &id
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, role model.Role) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE role = $1 AND read_at IS NULL`
	if err := sqlx.GetContext(ctx, r.db, &count, query, string(role)); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
