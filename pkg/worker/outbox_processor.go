package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	"github.com/longevaiapp/EVEREST-sub000/pkg/logger"
	"github.com/longevaiapp/EVEREST-sub000/pkg/messaging"
	"github.com/longevaiapp/EVEREST-sub000/pkg/metrics"
	"github.com/longevaiapp/EVEREST-sub000/pkg/repository"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	MaxAttempts   int
	Topic         string
}

// Handler runs after an event of its type was published to the broker.
type Handler func(ctx context.Context, event *model.OutboxEvent) error

// OutboxProcessor relays committed outbox events to the broker, at least
// once. An event stays pending until it is relayed or has failed
// MaxAttempts polls.
type OutboxProcessor struct {
	repo     repository.OutboxRepository
	broker   messaging.Publisher
	config   OutboxProcessorConfig
	handlers map[string][]Handler
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Publisher,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	// Config validation instead of defaults
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}
	if config.MaxAttempts <= 0 {
		panic("MaxAttempts must be greater than 0")
	}
	if config.Topic == "" {
		config.Topic = model.TopicPatientEvents
	}

	return &OutboxProcessor{
		repo:     repo,
		broker:   broker,
		config:   config,
		handlers: make(map[string][]Handler),
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Handle registers h for events of eventType. Register before Start.
func (p *OutboxProcessor) Handle(eventType string, h Handler) {
	p.handlers[eventType] = append(p.handlers[eventType], h)
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if err := p.ProcessOnce(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		}
	}
}

// ProcessOnce relays one batch of pending events.
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.GetPending(ctx, p.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending events: %w", err)
	}
	p.metrics.OutboxQueueSize.Set(float64(len(events)))

	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "Failed to process event",
				"event_id", event.ID.String(),
				"event_type", event.EventType,
				"attempt", event.Attempts+1)
			continue
		}
	}

	return nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	err := retry(p.config.RetryAttempts, p.config.RetryDelay, func() error {
		return p.broker.Publish(ctx, p.config.Topic, messaging.Message{
			ID:      event.ID.String(),
			Type:    event.EventType,
			Key:     event.PatientID.String(),
			Payload: event.Payload,
		})
	})
	if err == nil {
		for _, h := range p.handlers[event.EventType] {
			if err = h(ctx, event); err != nil {
				break
			}
		}
	}

	if err != nil {
		final := event.Attempts+1 >= p.config.MaxAttempts
		if final {
			p.metrics.OutboxEventsFailed.Inc()
		} else {
			p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
		}
		if updateErr := p.repo.MarkFailed(ctx, event.ID, err.Error(), final); updateErr != nil {
			p.logger.Error(updateErr, "Failed to update event status", "event_id", event.ID.String())
		}
		return err
	}

	p.metrics.OutboxEventsProcessed.Inc()
	if err := p.repo.MarkProcessed(ctx, event.ID, p.now()); err != nil {
		p.logger.Error(err, "Failed to update event status", "event_id", event.ID.String())
		return err
	}

	return nil
}

// Helper retry function
func retry(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
