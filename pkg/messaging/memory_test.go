package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBrokerDelivers(t *testing.T) {
	b := NewMemoryBroker(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Subscribe(ctx, "clinic.patient")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "clinic.patient", Message{ID: "1", Type: "patient.triaged"}))
	require.NoError(t, b.Publish(ctx, "other", Message{ID: "2"}))

	select {
	case msg := <-ch:
		assert.Equal(t, "1", msg.ID)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
	assert.Empty(t, ch)
}

func TestMemoryBrokerUnsubscribesOnCancel(t *testing.T) {
	b := NewMemoryBroker(1)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := b.Subscribe(ctx, "t")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestMemoryBrokerClose(t *testing.T) {
	b := NewMemoryBroker(1)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	assert.ErrorIs(t, b.Publish(context.Background(), "t", Message{}), ErrClosed)
	_, err := b.Subscribe(context.Background(), "t")
	assert.ErrorIs(t, err, ErrClosed)
}
