package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/longevaiapp/EVEREST-sub000/config"
	"github.com/longevaiapp/EVEREST-sub000/internal/app"
	"github.com/longevaiapp/EVEREST-sub000/internal/email"
	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	careWorker "github.com/longevaiapp/EVEREST-sub000/internal/worker"
	"github.com/longevaiapp/EVEREST-sub000/pkg/repository"
	"github.com/longevaiapp/EVEREST-sub000/pkg/worker"
)

func setupHealthCheck(a *app.App, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.Store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))

	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to config.yml")
	healthAddr := flag.String("health-addr", ":8081", "listen address of the health and metrics server")
	flag.Parse()

	// Load config
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	l := app.NewLogger(cfg.Log)
	if cfg.Database.Driver == config.DriverMemory {
		l.Warn("worker running on the memory store sees none of the API's data")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, l)
	if err != nil {
		l.Fatal(err, "Failed to initialize services")
	}
	defer a.Close()

	broker, err := a.Broker(ctx)
	if err != nil {
		l.Fatal(err, "Failed to create message broker")
	}
	defer broker.Close()

	var outbox repository.OutboxRepository = a.Store.Outbox()

	// Initialize outbox processor
	processor := worker.NewOutboxProcessor(
		outbox,
		broker,
		cfg.Outbox.ToWorkerConfig(),
		l.WithFields(map[string]interface{}{"worker": "outbox"}),
		a.Metrics,
	)
	processor.Handle(model.OutboxPatientDischarged, email.DischargeHandler(email.NewService(cfg.SMTP, l)))

	cleanup := worker.NewOutboxCleanupWorker(outbox, cfg.Outbox.Retention, cfg.Outbox.CleanupInterval,
		l.WithFields(map[string]interface{}{"worker": "outbox_cleanup"}))
	monitor := careWorker.NewCareMonitor(a.Care, cfg.Care.TickInterval,
		l.WithFields(map[string]interface{}{"worker": "care_monitor"}), nil)

	// Setup health check endpoints
	srv := setupHealthCheck(a, *healthAddr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error(err, "Health check server failed")
			cancel()
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			l.Info("Shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	var wg sync.WaitGroup
	for _, run := range []func(context.Context){processor.Start, cleanup.Start, monitor.Start} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(run)
	}
	wg.Wait()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error(err, "Health server forced to shutdown")
	}
	l.Info("Worker exited")
}
