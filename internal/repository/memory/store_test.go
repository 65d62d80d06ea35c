package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	"github.com/longevaiapp/EVEREST-sub000/internal/repository"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

func newPatient(name string) *model.Patient {
	return &model.Patient{ID: uuid.New(), Name: name, State: model.StateArrived}
}

func TestPatientRepoRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newPatient("Luna")

	require.NoError(t, s.Patients().Create(ctx, p))
	assert.True(t, apperrors.IsConflict(s.Patients().Create(ctx, p)))

	got, err := s.Patients().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Luna", got.Name)

	got.Name = "changed"
	again, _ := s.Patients().Get(ctx, p.ID)
	assert.Equal(t, "Luna", again.Name)

	_, err = s.Patients().Get(ctx, uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestPatientHistoryCannotShrink(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newPatient("Toby")
	p.History = []model.HistoryEntry{{Action: model.EventCheckedIn}}
	require.NoError(t, s.Patients().Create(ctx, p))

	p.History = nil
	assert.True(t, apperrors.IsConflict(s.Patients().Update(ctx, p)))
}

func TestPatientListFilter(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := newPatient("a"), newPatient("b")
	b.State = model.StateWaiting
	require.NoError(t, s.Patients().Create(ctx, a))
	require.NoError(t, s.Patients().Create(ctx, b))

	all, err := s.Patients().List(ctx, model.PatientFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name)

	waiting, err := s.Patients().List(ctx, model.PatientFilter{States: []model.State{model.StateWaiting}})
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Equal(t, "b", waiting[0].Name)
}

func TestTaskCompleteRemovesFromQueue(t *testing.T) {
	ctx := context.Background()
	s := New()
	patientID := uuid.New()
	t1 := &model.Task{ID: uuid.New(), Role: model.RoleLaboratory, PatientID: patientID, Title: "X-ray"}
	t2 := &model.Task{ID: uuid.New(), Role: model.RoleLaboratory, PatientID: patientID, Title: "Blood panel"}
	require.NoError(t, s.Tasks().Create(ctx, t1))
	require.NoError(t, s.Tasks().Create(ctx, t2))

	ok, err := s.Tasks().Complete(ctx, model.RoleDoctor, t1.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "role must match")

	ok, err = s.Tasks().Complete(ctx, model.RoleLaboratory, t1.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Tasks().Complete(ctx, model.RoleLaboratory, t1.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	open, err := s.Tasks().ListOpen(ctx, model.RoleLaboratory)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "Blood panel", open[0].Title)

	all, err := s.Tasks().ListByPatient(ctx, patientID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestNotificationsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	first := &model.Notification{ID: uuid.New(), Role: model.RoleDoctor, Title: "first"}
	second := &model.Notification{ID: uuid.New(), Role: model.RoleDoctor, Title: "second"}
	require.NoError(t, s.Notifications().Create(ctx, first))
	require.NoError(t, s.Notifications().Create(ctx, second))

	list, err := s.Notifications().List(ctx, model.RoleDoctor, false, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Title)

	require.NoError(t, s.Notifications().MarkRead(ctx, second.ID, time.Now()))
	require.NoError(t, s.Notifications().MarkRead(ctx, uuid.New(), time.Now()))

	unread, err := s.Notifications().List(ctx, model.RoleDoctor, true, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "first", unread[0].Title)

	count, err := s.Notifications().UnreadCount(ctx, model.RoleDoctor)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWithTxRollsBackEveryWrite(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newPatient("Milo")
	require.NoError(t, s.Patients().Create(ctx, p))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		p.State = model.StateWaiting
		if err := tx.Patients().Update(ctx, p); err != nil {
			return err
		}
		if err := tx.Tasks().Create(ctx, &model.Task{ID: uuid.New(), Role: model.RoleDoctor}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Patients().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateArrived, got.State)

	tasks, err := s.Tasks().ListOpen(ctx, model.RoleDoctor)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestReadsOutsideTxNeverSeeUncommittedWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newPatient("Milo")

	read := make(chan error, 1)
	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := tx.Patients().Create(ctx, p); err != nil {
			return err
		}
		go func() {
			_, err := s.Patients().Get(ctx, p.ID)
			read <- err
		}()

		select {
		case <-read:
			t.Error("read outside the transaction did not wait for it")
		case <-time.After(50 * time.Millisecond):
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	select {
	case err := <-read:
		assert.True(t, apperrors.IsNotFound(err))
	case <-time.After(time.Second):
		t.Fatal("read never completed")
	}
}

func TestWithTxCommitsAndNests(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		return tx.WithTx(ctx, func(ctx context.Context, inner repository.Store) error {
			return inner.Patients().Create(ctx, newPatient("Kira"))
		})
	})
	require.NoError(t, err)

	all, err := s.Patients().List(ctx, model.PatientFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestOutboxLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	ev, err := model.NewOutboxEvent(model.PatientEvent{Type: model.EventDischarged, PatientID: uuid.New(), OccurredAt: now})
	require.NoError(t, err)
	assert.Equal(t, model.OutboxPatientDischarged, ev.EventType)
	require.NoError(t, s.Outbox().Create(ctx, ev))

	require.NoError(t, s.Outbox().MarkFailed(ctx, ev.ID, "redis down", false))
	pending, err := s.Outbox().GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)

	require.NoError(t, s.Outbox().MarkProcessed(ctx, ev.ID, now))
	pending, err = s.Outbox().GetPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	n, err := s.Outbox().DeleteProcessedBefore(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
