package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadgen_backend/internal/adapters/storage"
	"leadgen_backend/internal/campaigns"
	"leadgen_backend/internal/campaigns/repository"
	"leadgen_backend/internal/email"
	"leadgen_backend/internal/events"
	"leadgen_backend/internal/exports"
	apphttp "leadgen_backend/internal/http"
	"leadgen_backend/internal/http/router"
	"leadgen_backend/internal/scheduler"
	"leadgen_backend/migrations"
	"leadgen_backend/platform/config"
	"leadgen_backend/platform/db"
	"leadgen_backend/platform/logger"
	"leadgen_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting api server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(cfg.GetDatabaseURL(), migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Task queue client for campaign dispatch
	queueClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize queue client", "error", err)
		panic("failed to initialize queue client: " + err.Error())
	}
	defer func() {
		_ = queueClient.Close()
	}()

	// Shared validator instance for dependency injection
	val := validator.New()

	// Optional object storage for campaign exports
	var storageSvc storage.StorageService
	if cfg.IsMinIOEnabled() {
		svc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure exports bucket", 5, 2*time.Second, func() error {
			return svc.EnsureBucketExists(ctx, cfg.GetMinioBucketCampaignExports())
		}); err != nil {
			log.Error("failed to ensure exports bucket", "error", err)
			panic("failed to ensure exports bucket: " + err.Error())
		}
		storageSvc = svc
		log.Info("storage service initialized", "exportsBucket", cfg.GetMinioBucketCampaignExports())
	} else {
		log.Warn("MINIO_ENDPOINT not configured; exports are served inline")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	campaignStore := repository.New(pool)
	exporter := exports.New(campaignStore, storageSvc, cfg.GetMinioBucketCampaignExports(), log)

	campaignsModule := campaigns.NewModule(pool, queueClient, exporter, eventBus, val, log)

	// Completion emails subscribe to campaign events (not HTTP-facing)
	notifier := email.NewNotifier(email.NewSender(cfg), campaignStore, log)
	notifier.RegisterHandlers(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			campaignsModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
