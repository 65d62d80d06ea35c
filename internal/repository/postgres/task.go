package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

const taskColumns = `id, role, patient_id, title, description, priority, created_at, completed_at, details`

type taskRow struct {
	ID          uuid.UUID            `db:"id"`
	Role        string               `db:"role"`
	PatientID   uuid.UUID            `db:"patient_id"`
	Title       string               `db:"title"`
	Description string               `db:"description"`
	Priority    string               `db:"priority"`
	CreatedAt   time.Time            `db:"created_at"`
	CompletedAt *time.Time           `db:"completed_at"`
	Details     jsonb[model.Details] `db:"details"`
}

func (row taskRow) toModel() *model.Task {
	return &model.Task{
		ID:          row.ID,
		Role:        model.Role(row.Role),
		PatientID:   row.PatientID,
		Title:       row.Title,
		Description: row.Description,
		Priority:    model.Priority(row.Priority),
		CreatedAt:   row.CreatedAt,
		CompletedAt: row.CompletedAt,
		Details:     row.Details.V,
	}
}

type taskRepository struct {
	db sqlx.ExtContext
}

func (r *taskRepository) Create(ctx context.Context, t *model.Task) error {
	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (:id, :role, :patient_id, :title, :description, :priority, :created_at, :completed_at, :details)
	`
	row := taskRow{
		ID:          t.ID,
		Role:        string(t.Role),
		PatientID:   t.PatientID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
		Details:     jsonOf(t.Details),
	}
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, row); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (r *taskRepository) Get(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var row taskRow
	err := sqlx.GetContext(ctx, r.db, &row, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, apperrors.NotFound("task", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return row.toModel(), nil
}

func (r *taskRepository) Complete(ctx context.Context, role model.Role, id uuid.UUID, at time.Time) (bool, error) {
	query := `UPDATE tasks SET completed_at = $1 WHERE id = $2 AND role = $3 AND completed_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, at, id, string(role))
	if err != nil {
		return false, fmt.Errorf("failed to complete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *taskRepository) ListOpen(ctx context.Context, role model.Role) ([]*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE role = $1 AND completed_at IS NULL ORDER BY seq ASC`
	return r.list(ctx, query, string(role))
}

func (r *taskRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, openOnly bool) ([]*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE patient_id = $1`
	if openOnly {
		query += ` AND completed_at IS NULL`
	}
	query += ` ORDER BY seq ASC`
	return r.list(ctx, query, patientID)
}

func (r *taskRepository) list(ctx context.Context, query string, args ...interface{}) ([]*model.Task, error) {
	var rows []taskRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	tasks := make([]*model.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toModel())
	}
	return tasks, nil
}
