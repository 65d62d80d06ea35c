// Package app wires the clinic services from configuration. The API, the
// worker and clinicctl all build on it.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/longevaiapp/EVEREST-sub000/config"
	"github.com/longevaiapp/EVEREST-sub000/internal/repository"
	"github.com/longevaiapp/EVEREST-sub000/internal/repository/memory"
	"github.com/longevaiapp/EVEREST-sub000/internal/repository/postgres"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/billing"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/care"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/notification"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/patient"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/pharmacy"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/task"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/workflow"
	"github.com/longevaiapp/EVEREST-sub000/pkg/locker"
	"github.com/longevaiapp/EVEREST-sub000/pkg/logger"
	"github.com/longevaiapp/EVEREST-sub000/pkg/messaging"
	"github.com/longevaiapp/EVEREST-sub000/pkg/messaging/redis"
	"github.com/longevaiapp/EVEREST-sub000/pkg/metrics"
)

const metricsNamespace = "clinic"

type App struct {
	Config   *config.Config
	Logger   *logger.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Store    repository.Store

	Patients      *patient.Service
	Tasks         *task.Service
	Notifications *notification.Service
	Care          *care.Service
	Pharmacy      pharmacy.Service
	Billing       *billing.Service
	Engine        *workflow.Engine

	now func() time.Time
}

// NewLogger builds the process logger and makes it the global zerolog
// logger used by the HTTP middleware.
func NewLogger(cfg config.LogConfig) *logger.Logger {
	var out io.Writer = os.Stdout
	if cfg.File.Path != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		})
	}
	l := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		Output:     out,
		JSON:       cfg.JSON,
	})
	log.Logger = l.ZL
	return l
}

// OpenStore connects the configured store. Postgres schemas are migrated
// by clinicctl, not here.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(db), nil
	case config.DriverMemory, "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func New(ctx context.Context, cfg *config.Config, l *logger.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return NewWithStore(cfg, l, store, time.Now), nil
}

// NewWithStore wires every service around store.
func NewWithStore(cfg *config.Config, l *logger.Logger, store repository.Store, now func() time.Time) *App {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(metricsNamespace, reg)

	locks := locker.New()
	careSvc := care.NewService(store, locks, m, l, now)
	inventory := pharmacy.NewInventory(cfg.Pharmacy.Catalog)
	rates := billing.NewStaticRates(cfg.Billing.DailyRates, cfg.Billing.StudyCosts, cfg.Billing.DefaultStudyCost)

	return &App{
		Config:        cfg,
		Logger:        l,
		Registry:      reg,
		Metrics:       m,
		Store:         store,
		Patients:      patient.NewService(store, now),
		Tasks:         task.NewService(store, now),
		Notifications: notification.NewService(store, now),
		Care:          careSvc,
		Pharmacy:      inventory,
		Billing:       billing.NewService(store, rates, now),
		Engine: workflow.NewEngine(workflow.Deps{
			Store:    store,
			Care:     careSvc,
			Pharmacy: inventory,
			Locks:    locks,
			Metrics:  m,
			Logger:   l,
			Now:      now,
		}),
		now: now,
	}
}

// Broker returns the Redis broker when enabled, or an in-process one.
func (a *App) Broker(ctx context.Context) (messaging.Broker, error) {
	if !a.Config.Redis.Enabled {
		a.Logger.Warn("redis disabled, relaying outbox events in process only")
		return messaging.NewMemoryBroker(256), nil
	}
	broker, err := redis.NewRedisBroker(ctx, a.Config.Redis.ToBrokerConfig(), &a.Logger.ZL)
	if err != nil {
		return nil, err
	}
	return broker, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}
