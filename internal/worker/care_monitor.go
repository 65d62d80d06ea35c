package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/care"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
	"github.com/longevaiapp/EVEREST-sub000/pkg/logger"
)

// CareService is what the monitor needs from the hospitalization service.
type CareService interface {
	ListOpen(ctx context.Context) ([]*model.Hospitalization, error)
	GenerateDailySchedule(ctx context.Context, id uuid.UUID) ([]model.MedicationAdministration, error)
	Tick(ctx context.Context, now time.Time) (*care.Board, error)
}

// CareMonitor keeps the medication schedules of open hospitalizations
// booked a day ahead and recomputes the ward board on every tick.
type CareMonitor struct {
	care     CareService
	interval time.Duration
	logger   *logger.Logger
	now      func() time.Time

	mu     sync.RWMutex
	latest *care.Board
}

func NewCareMonitor(svc CareService, interval time.Duration, log *logger.Logger, now func() time.Time) *CareMonitor {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CareMonitor{care: svc, interval: interval, logger: log, now: now}
}

func (m *CareMonitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("Starting care monitor", "interval", m.interval.String())
	m.runLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Shutting down care monitor")
			return
		case <-ticker.C:
			m.runLogged(ctx)
		}
	}
}

func (m *CareMonitor) runLogged(ctx context.Context) {
	if _, err := m.RunOnce(ctx); err != nil && ctx.Err() == nil {
		m.logger.Error(err, "Care monitor tick failed")
	}
}

// RunOnce extends every open schedule, then rebuilds the board.
func (m *CareMonitor) RunOnce(ctx context.Context) (*care.Board, error) {
	open, err := m.care.ListOpen(ctx)
	if err != nil {
		return nil, err
	}

	booked := 0
	for _, h := range open {
		slots, err := m.care.GenerateDailySchedule(ctx, h.ID)
		if err != nil {
			// Discharged between the listing and the write.
			if apperrors.IsValidation(err) || apperrors.IsNotFound(err) {
				continue
			}
			m.logger.Error(err, "Failed to extend medication schedule", "hospitalization_id", h.ID.String())
			continue
		}
		booked += len(slots)
	}
	if booked > 0 {
		m.logger.Debug("Booked medication slots", "count", booked)
	}

	board, err := m.care.Tick(ctx, m.now())
	if err != nil {
		return nil, err
	}
	if n := board.Counts[care.StatusUrgent]; n > 0 {
		m.logger.Warn("Patients need monitoring now", "urgent", n, "overdue", board.Counts[care.StatusOverdue])
	}

	m.mu.Lock()
	m.latest = board
	m.mu.Unlock()
	return board, nil
}

// Latest returns the board of the last successful run, or nil.
func (m *CareMonitor) Latest() *care.Board {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}
