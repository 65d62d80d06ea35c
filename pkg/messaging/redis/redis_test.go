package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longevaiapp/EVEREST-sub000/pkg/messaging"
)

func TestNewRedisBrokerRejectsBadURL(t *testing.T) {
	_, err := NewRedisBroker(context.Background(), Config{URL: "http://nope"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse Redis URL")
}

func TestPublishOpensBreakerAfterFailures(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	b := newBroker(client, Config{BreakerFailures: 2, BreakerTimeout: time.Minute}, nil)
	defer b.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		err := b.Publish(ctx, "clinic.patient", messaging.Message{ID: "x"})
		require.Error(t, err)
		assert.False(t, errors.Is(err, gobreaker.ErrOpenState))
	}

	err := b.Publish(ctx, "clinic.patient", messaging.Message{ID: "x"})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
