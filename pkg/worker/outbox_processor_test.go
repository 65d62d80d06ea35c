package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	"github.com/longevaiapp/EVEREST-sub000/internal/repository/memory"
	"github.com/longevaiapp/EVEREST-sub000/pkg/logger"
	"github.com/longevaiapp/EVEREST-sub000/pkg/messaging"
	"github.com/longevaiapp/EVEREST-sub000/pkg/metrics"
)

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(ctx context.Context, topic string, msg messaging.Message) error {
	p.calls++
	return errors.New("broker unavailable")
}

func testConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
		MaxAttempts:   2,
	}
}

func queueEvent(t *testing.T, store *memory.Store, typ model.EventType) *model.OutboxEvent {
	t.Helper()
	ev, err := model.NewOutboxEvent(model.PatientEvent{
		Type:       typ,
		PatientID:  uuid.New(),
		State:      model.StateDischarged,
		OccurredAt: time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC),
		Patient:    "Luna",
		Owner:      &model.Owner{Name: "Ana", Email: "ana@example.com"},
	})
	require.NoError(t, err)
	require.NoError(t, store.Outbox().Create(context.Background(), ev))
	return ev
}

func TestOutboxProcessorRelaysEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := memory.New()
	broker := messaging.NewMemoryBroker(8)
	ch, err := broker.Subscribe(ctx, model.TopicPatientEvents)
	require.NoError(t, err)

	p := NewOutboxProcessor(store.Outbox(), broker, testConfig(), logger.Nop(), metrics.New("test"))
	var handled []uuid.UUID
	p.Handle(model.OutboxPatientDischarged, func(ctx context.Context, event *model.OutboxEvent) error {
		handled = append(handled, event.ID)
		return nil
	})

	triaged := queueEvent(t, store, model.EventTriaged)
	discharged := queueEvent(t, store, model.EventDischarged)

	require.NoError(t, p.ProcessOnce(ctx))

	first := <-ch
	second := <-ch
	assert.Equal(t, triaged.ID.String(), first.ID)
	assert.Equal(t, "patient.triaged", first.Type)
	assert.Equal(t, triaged.PatientID.String(), first.Key)
	assert.Equal(t, model.OutboxPatientDischarged, second.Type)
	assert.Equal(t, []uuid.UUID{discharged.ID}, handled)

	pending, err := store.Outbox().GetPending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutboxProcessorRetriesThenFails(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pub := &failingPublisher{}
	p := NewOutboxProcessor(store.Outbox(), pub, testConfig(), logger.Nop(), metrics.New("test"))

	queueEvent(t, store, model.EventTriaged)

	require.NoError(t, p.ProcessOnce(ctx))
	assert.Equal(t, 2, pub.calls)
	pending, err := store.Outbox().GetPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
	require.NotNil(t, pending[0].LastError)
	assert.Equal(t, "broker unavailable", *pending[0].LastError)

	require.NoError(t, p.ProcessOnce(ctx))
	pending, err = store.Outbox().GetPending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutboxProcessorHandlerFailureKeepsEventPending(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p := NewOutboxProcessor(store.Outbox(), messaging.NewMemoryBroker(1), testConfig(), logger.Nop(), metrics.New("test"))
	p.Handle(model.OutboxPatientDischarged, func(ctx context.Context, event *model.OutboxEvent) error {
		return errors.New("smtp down")
	})

	queueEvent(t, store, model.EventDischarged)
	require.NoError(t, p.ProcessOnce(ctx))

	pending, err := store.Outbox().GetPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
}

func TestNewOutboxProcessorRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 0
	assert.Panics(t, func() {
		NewOutboxProcessor(memory.New().Outbox(), &failingPublisher{}, cfg, logger.Nop(), metrics.New("test"))
	})
}

func TestOutboxCleanupRemovesOldProcessedEvents(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	old := queueEvent(t, store, model.EventTriaged)
	recent := queueEvent(t, store, model.EventTriaged)
	stuck := queueEvent(t, store, model.EventTriaged)

	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Outbox().MarkProcessed(ctx, old.ID, now.Add(-48*time.Hour)))
	require.NoError(t, store.Outbox().MarkProcessed(ctx, recent.ID, now.Add(-time.Hour)))

	w := NewOutboxCleanupWorker(store.Outbox(), 24*time.Hour, time.Hour, logger.Nop())
	assert.Equal(t, int64(1), w.Cleanup(ctx, now))

	pending, err := store.Outbox().GetPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, stuck.ID, pending[0].ID)
}
