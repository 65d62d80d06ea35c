package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	"github.com/longevaiapp/EVEREST-sub000/internal/repository"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

func setupMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(sqlx.NewDb(db, "postgres")), mock
}

func TestTaskRepository_Get(t *testing.T) {
	store, mock := setupMockStore(t)
	ctx := context.Background()

	id := uuid.New()
	patientID := uuid.New()
	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "role", "patient_id", "title", "description", "priority", "created_at", "completed_at", "details"}).
		AddRow(id.String(), "TRIAGE", patientID.String(), "Triage Luna", "limping", "HIGH", created, nil, []byte(`{"kind":"studies","studies":{"studies":["X-ray"]}}`))
	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id = \\$1").
		WithArgs(id).
		WillReturnRows(rows)

	task, err := store.Tasks().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, task.ID)
	assert.Equal(t, model.RoleTriage, task.Role)
	assert.Equal(t, patientID, task.PatientID)
	assert.True(t, task.Open())
	assert.Equal(t, model.KindStudies, task.Details.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_GetMissing(t *testing.T) {
	store, mock := setupMockStore(t)

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id = \\$1").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Tasks().Get(context.Background(), id)
	assert.True(t, apperrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_CompleteIsConditional(t *testing.T) {
	store, mock := setupMockStore(t)
	ctx := context.Background()
	id := uuid.New()
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE tasks SET completed_at").
		WithArgs(at, id, "DOCTOR").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tasks SET completed_at").
		WithArgs(at, id, "DOCTOR").
		WillReturnResult(sqlmock.NewResult(0, 0))

	done, err := store.Tasks().Complete(ctx, model.RoleDoctor, id, at)
	require.NoError(t, err)
	assert.True(t, done)

	done, err = store.Tasks().Complete(ctx, model.RoleDoctor, id, at)
	require.NoError(t, err)
	assert.False(t, done)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		store, mock := setupMockStore(t)
		id := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE outbox_events").
			WithArgs(string(model.OutboxStatusProcessed), sqlmock.AnyArg(), id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.WithTx(context.Background(), func(ctx context.Context, tx repository.Store) error {
			return tx.Outbox().MarkProcessed(ctx, id, time.Now())
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		store, mock := setupMockStore(t)
		boom := errors.New("boom")

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := store.WithTx(context.Background(), func(ctx context.Context, tx repository.Store) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested calls share the transaction", func(t *testing.T) {
		store, mock := setupMockStore(t)

		mock.ExpectBegin()
		mock.ExpectCommit()

		err := store.WithTx(context.Background(), func(ctx context.Context, tx repository.Store) error {
			return tx.WithTx(ctx, func(context.Context, repository.Store) error { return nil })
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository(t *testing.T) {
	store, mock := setupMockStore(t)
	ctx := context.Background()
	id := uuid.New()
	patientID := uuid.New()
	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM outbox_events").
		WithArgs(string(model.OutboxStatusPending), 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_type", "patient_id", "payload", "status", "attempts", "last_error", "created_at", "processed_at"}).
			AddRow(id.String(), model.OutboxPatientDischarged, patientID.String(), []byte(`{"type":"discharged"}`), "PENDING", 1, "smtp down", created, nil))

	events, err := store.Outbox().GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].ID)
	assert.Equal(t, 1, events[0].Attempts)
	require.NotNil(t, events[0].LastError)
	assert.Equal(t, "smtp down", *events[0].LastError)

	mock.ExpectExec("UPDATE outbox_events").
		WithArgs(string(model.OutboxStatusFailed), "still down", id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = store.Outbox().MarkFailed(ctx, id, "still down", true)
	assert.True(t, apperrors.IsNotFound(err))

	mock.ExpectExec("DELETE FROM outbox_events").
		WithArgs(string(model.OutboxStatusProcessed), created).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.Outbox().DeleteProcessedBefore(ctx, created)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
