package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/longevaiapp/EVEREST-sub000/config"
	"github.com/longevaiapp/EVEREST-sub000/internal/app"
	billingHandler "github.com/longevaiapp/EVEREST-sub000/internal/handler/billing"
	careHandler "github.com/longevaiapp/EVEREST-sub000/internal/handler/care"
	"github.com/longevaiapp/EVEREST-sub000/internal/handler/health"
	notificationHandler "github.com/longevaiapp/EVEREST-sub000/internal/handler/notification"
	patientHandler "github.com/longevaiapp/EVEREST-sub000/internal/handler/patient"
	pharmacyHandler "github.com/longevaiapp/EVEREST-sub000/internal/handler/pharmacy"
	"github.com/longevaiapp/EVEREST-sub000/internal/handler/prometheus"
	taskHandler "github.com/longevaiapp/EVEREST-sub000/internal/handler/task"
	workflowHandler "github.com/longevaiapp/EVEREST-sub000/internal/handler/workflow"
	"github.com/longevaiapp/EVEREST-sub000/internal/middleware"
	"github.com/longevaiapp/EVEREST-sub000/internal/router"
	"github.com/longevaiapp/EVEREST-sub000/pkg/auth"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to config.yml")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := app.NewLogger(cfg.Log)

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(err, "failed to initialize services")
	}
	defer a.Close()

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(auth.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer), cfg.Server.DevHeaders)
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.Server.AllowedOrigins

	// Setup router
	r := router.NewRouter(
		authMiddleware,
		a.Metrics,
		health.NewHandler(a.Store),
		prometheus.New(a.Registry).Handler(),
		[]router.Handler{
			patientHandler.NewHandler(a.Engine, a.Patients, a.Tasks),
			workflowHandler.NewHandler(a.Engine),
			taskHandler.NewHandler(a.Tasks),
			notificationHandler.NewHandler(a.Notifications),
			careHandler.NewHandler(a.Care, nil),
			billingHandler.NewHandler(a.Billing),
			pharmacyHandler.NewHandler(a.Pharmacy),
		},
		router.RouterConfig{
			Mode:         cfg.Server.Mode,
			RateLimit:    rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:    cfg.RateLimit.Burst,
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
			CORSConfig:   cors,
		},
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// Start server
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(err, "failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "server forced to shutdown")
	}

	logger.Info("server exited properly")
}
