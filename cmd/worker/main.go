package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadgen_backend/internal/campaigns/repository"
	"leadgen_backend/internal/campaigns/service"
	"leadgen_backend/internal/email"
	"leadgen_backend/internal/events"
	"leadgen_backend/internal/scheduler"
	"leadgen_backend/internal/search"
	"leadgen_backend/migrations"
	"leadgen_backend/platform/config"
	"leadgen_backend/platform/db"
	"leadgen_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	workerID := scheduler.WorkerID()
	log.Info("starting campaign worker", "env", cfg.Env, "worker_id", workerID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(cfg.GetDatabaseURL(), migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}

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

	eventBus := events.NewInMemoryBus(log)
	store := repository.New(pool)

	// Completion emails fire from the worker, where terminal writes happen.
	notifier := email.NewNotifier(email.NewSender(cfg), store, log)
	notifier.RegisterHandlers(eventBus)

	places := search.NewPlacesClient(cfg, log)
	planner := buildPlanner(ctx, cfg, log)

	runner := service.NewRunner(store, places, planner, eventBus, log, workerID)
	monitor := service.NewMonitor(store, eventBus, log)

	worker, err := scheduler.NewWorker(cfg, cfg, runner, monitor, log, workerID)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("worker exited with error", "error", err)
		panic("worker exited with error: " + err.Error())
	}
	log.Info("campaign worker stopped")
}

// buildPlanner returns the AI query planner when a Gemini key is configured
// and the no-op planner otherwise.
func buildPlanner(ctx context.Context, cfg config.SearchConfig, log *logger.Logger) search.Planner {
	if !cfg.IsQueryPlannerEnabled() {
		log.Warn("GEMINI_API_KEY not configured; prompt campaigns use the base query only")
		return search.NoopPlanner{}
	}
	planner, err := search.NewGeminiPlanner(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize query planner, falling back", "error", err)
		return search.NoopPlanner{}
	}
	log.Info("query planner initialized", "model", cfg.GetGeminiModel())
	return planner
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
