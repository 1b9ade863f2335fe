package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"Mailcast/internal/api"
	"Mailcast/internal/config"
	"Mailcast/internal/db"
	"Mailcast/internal/delivery"
	"Mailcast/internal/email"
	"Mailcast/internal/metrics"
	"Mailcast/internal/models"
	"Mailcast/internal/newsletter"
	"Mailcast/internal/schedule"
	"Mailcast/internal/scheduler"
	"Mailcast/internal/tasks"
	"Mailcast/internal/worker"
)

func main() {

	// ------------------------------------------------
	// Logger
	// ------------------------------------------------
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// ------------------------------------------------
	// Config
	// ------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("invalid scheduler timezone", zap.String("tz", cfg.SchedulerTimezone), zap.Error(err))
	}

	// ------------------------------------------------
	// Root Context + Shutdown
	// ------------------------------------------------
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	// ------------------------------------------------
	// Database
	// ------------------------------------------------
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}

	// ------------------------------------------------
	// Metrics
	// ------------------------------------------------
	metrics.Init()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metricsMux,
	}

	go func() {
		logger.Info("metrics server started", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("metrics server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Firing Channel (shared by trigger runtime + workers)
	// ------------------------------------------------
	jobs := make(chan models.FiringJob, cfg.FiringQueueSize)

	// ------------------------------------------------
	// Email Sender
	// ------------------------------------------------
	sender := email.NewSender(email.Config{
		Host:               cfg.SMTPHost,
		Port:               cfg.SMTPPort,
		Username:           cfg.SMTPUser,
		Password:           cfg.SMTPPassword,
		Retries:            cfg.RetryAttempts,
		BreakerName:        "smtp",
		BreakerMaxFailures: cfg.BreakerMaxFailures,
		BreakerTimeout:     cfg.BreakerTimeout,
	}, logger)

	// ------------------------------------------------
	// Rate Limiter
	// ------------------------------------------------
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit)

	// ------------------------------------------------
	// Scheduling Core
	// ------------------------------------------------
	triggers := scheduler.NewRuntime(store, jobs, loc, logger)
	registry := schedule.NewRegistry(store)
	taskManager := tasks.NewManager(store, registry, triggers, loc, logger)

	engine := delivery.NewEngine(store, sender, cfg.SMTPFrom, limiter, logger)
	dispatcher := delivery.NewDispatcher(store, taskManager, engine, triggers, delivery.SystemClock{}, logger)

	if err := triggers.Reconcile(ctx); err != nil {
		logger.Fatal("initial trigger reconcile failed", zap.Error(err))
	}
	triggers.Start()
	go triggers.RunReconciler(ctx, cfg.ReconcileInterval)

	// ------------------------------------------------
	// Worker Pool
	// ------------------------------------------------
	var wg sync.WaitGroup

	worker.StartPool(
		ctx,
		&wg,
		cfg.WorkerCount,
		jobs,
		dispatcher,
		logger,
	)

	// ------------------------------------------------
	// HTTP API Server
	// ------------------------------------------------
	apiHandler := &api.Handler{
		Service: newsletter.NewService(store, taskManager, delivery.SystemClock{}, logger),
		Log:     logger,
	}

	apiServer := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: api.NewRouter(apiHandler),
	}

	go func() {
		logger.Info("api server started", zap.String("port", cfg.APIPort))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("api server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Wait for shutdown
	// ------------------------------------------------
	<-ctx.Done()

	logger.Info("shutting down services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop producing firings
	triggers.Stop(shutdownCtx)

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", zap.Error(err))
	}

	// Wait workers to finish their current firing
	wg.Wait()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown failed", zap.Error(err))
	}

	logger.Info("application shutdown complete")
}
