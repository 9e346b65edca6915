package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/mlender/goalplan/internal/api"
	"github.com/mlender/goalplan/internal/config"
	"github.com/mlender/goalplan/internal/metrics"
	"github.com/mlender/goalplan/internal/repository/postgres"
	"github.com/mlender/goalplan/internal/service"
	"github.com/mlender/goalplan/pkg/logger"
)

func main() {
	// A .env file is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel)
	l.Info("Starting goalplan...")

	// Database
	db, err := config.NewDatabase(cfg.DatabaseURL, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate("migrations"); err != nil {
		l.Fatalf("Failed to run migrations: %v", err)
	}

	// Stores
	scheduleStore := postgres.NewScheduleStore(db.DB)
	seriesStore := postgres.NewSeriesStore(db.DB)

	// Metrics + service layer
	m := metrics.New()
	svc := service.New(l, m, scheduleStore, seriesStore, cfg.LookaheadDays)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		l.Info("Received shutdown signal...")
		cancel()
	}()

	// Rollforward runner keeps unbounded series materialized past their
	// original lookahead window.
	var runner *cron.Cron
	if cfg.RollforwardCron != "" {
		rfLog := logger.WithComponent(l, "rollforward")
		runner = cron.New()
		if _, err := runner.AddFunc(cfg.RollforwardCron, func() {
			if err := svc.Rollforward(ctx); err != nil {
				rfLog.Errorf("Rollforward error: %v", err)
			}
		}); err != nil {
			l.Fatalf("Invalid ROLLFORWARD_CRON %q: %v", cfg.RollforwardCron, err)
		}
		runner.Start()
		l.Infof("Rollforward runner scheduled: %s", cfg.RollforwardCron)
	}

	// Metrics endpoint
	metricsServer := &http.Server{
		Addr:    ":" + cfg.PrometheusPort,
		Handler: m.Handler(),
	}
	go func() {
		l.Infof("Metrics listening on :%s", cfg.PrometheusPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("Metrics server error: %v", err)
		}
	}()

	// HTTP API
	apiServer := api.NewServer(svc, l)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: apiServer.Handler(),
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	l.Info("goalplan started successfully")

	<-ctx.Done()

	if runner != nil {
		<-runner.Stop().Done()
	}

	l.Info("Shutting down HTTP server...")
	httpServer.Close()
	metricsServer.Close()

	l.Info("goalplan stopped")
}
