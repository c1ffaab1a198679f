package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"leadgen_backend/internal/campaigns/service"
	"leadgen_backend/internal/search"
	"leadgen_backend/platform/config"
	"leadgen_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker runs the asynq server that executes campaign run tasks, plus the
// lifecycle hooks around it: stuck-campaign cleanup before the first task is
// accepted, a periodic reconciliation sweep, and a shutdown sweep that fails
// runs owned by this process.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	runner   *service.Runner
	monitor  *service.Monitor
	log      *logger.Logger
	workerID string

	startupGrace    time.Duration
	monitorInterval time.Duration
	stuckMax        time.Duration
}

// WorkerID builds a stable identity for this process, stamped into the
// campaign lease on claim.
func WorkerID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8])
}

func NewWorker(cfg config.WorkerConfig, mon config.MonitorConfig, runner *service.Runner, monitor *service.Monitor, log *logger.Logger, workerID string) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
		RetryDelayFunc: retryDelayFunc(cfg.GetDispatchRetryDelay()),
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:          server,
		mux:             mux,
		runner:          runner,
		monitor:         monitor,
		log:             log,
		workerID:        workerID,
		startupGrace:    mon.GetStartupGrace(),
		monitorInterval: mon.GetMonitorInterval(),
		stuckMax:        mon.GetStuckMaxDuration(),
	}

	mux.HandleFunc(TaskCampaignRun, w.handleCampaignRun)

	return w, nil
}

// retryDelayFunc doubles the base delay per attempt: base, 2x, 4x.
func retryDelayFunc(base time.Duration) asynq.RetryDelayFunc {
	if base <= 0 {
		base = 5 * time.Minute
	}
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		if n < 1 {
			n = 1
		}
		return base << (n - 1)
	}
}

// handleCampaignRun executes one delivery and applies the retry policy.
// Transient failures requeue the campaign and surface the error so asynq
// redelivers; permanent failures and retry exhaustion write the terminal
// failed state.
func (w *Worker) handleCampaignRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCampaignRunPayload(task)
	if err != nil {
		return fmt.Errorf("parse campaign run payload: %v: %w", err, asynq.SkipRetry)
	}

	campaignID, err := uuid.Parse(payload.CampaignID)
	if err != nil {
		return fmt.Errorf("parse campaign id: %v: %w", err, asynq.SkipRetry)
	}
	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return fmt.Errorf("parse tenant id: %v: %w", err, asynq.SkipRetry)
	}

	log := w.log.WithCampaign(campaignID, tenantID)

	result, runErr := w.runner.Run(ctx, campaignID, tenantID)
	if runErr == nil {
		if result.Claimed {
			log.Info("campaign run finished",
				"found", result.TotalFound,
				"created", result.LeadsCreated,
				"duplicates", result.DuplicatesFound,
			)
		}
		return nil
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	switch classifyRunError(runErr, retried, maxRetry) {
	case decisionDrop:
		log.Warn("campaign run task for missing campaign", "error", runErr)
		return fmt.Errorf("%v: %w", runErr, asynq.SkipRetry)

	case decisionFailPermanent:
		log.Error("campaign run failed permanently", "error", runErr)
		if err := w.runner.Fail(ctx, campaignID, tenantID, runErr.Error()); err != nil {
			log.DatabaseError("scheduler.Fail", err)
		}
		return fmt.Errorf("%v: %w", runErr, asynq.SkipRetry)

	case decisionFailExhausted:
		log.Error("campaign run failed, retries exhausted",
			"error", runErr, "attempts", retried+1)
		if err := w.runner.Fail(ctx, campaignID, tenantID, fmt.Sprintf("%s (after %d attempts)", runErr, retried+1)); err != nil {
			log.DatabaseError("scheduler.Fail", err)
		}
		return runErr

	default:
		log.Warn("campaign run failed, will retry",
			"error", runErr, "attempt", retried+1, "max_retry", maxRetry)
		if err := w.runner.Requeue(ctx, campaignID); err != nil {
			log.DatabaseError("scheduler.Requeue", err)
		}
		return runErr
	}
}

type decision int

const (
	decisionRetry decision = iota
	decisionFailPermanent
	decisionFailExhausted
	decisionDrop
)

// classifyRunError maps a run failure to a retry action. Only failures the
// search layer marked transient are retried, and only while attempts remain.
func classifyRunError(err error, retried, maxRetry int) decision {
	if errors.Is(err, service.ErrCampaignGone) {
		return decisionDrop
	}
	if !search.IsTransient(err) {
		return decisionFailPermanent
	}
	if retried >= maxRetry {
		return decisionFailExhausted
	}
	return decisionRetry
}

// Run starts the worker: startup cleanup, periodic sweep, task loop. It
// blocks until ctx is cancelled and the shutdown sweep has run.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	// Repair rows orphaned by the previous process before taking new work.
	if _, err := w.monitor.CleanupStuckOnStartup(ctx, w.startupGrace); err != nil {
		w.log.Error("startup cleanup finished with errors", "error", err)
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go w.monitor.RunPeriodic(sweepCtx, w.monitorInterval, w.stuckMax)

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("campaign worker stopped", "error", err)
	}

	// The queue is drained of this process's work; anything still leased to
	// us was interrupted and will not resume.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := w.monitor.ForceFailOwned(shutdownCtx, w.workerID, "worker shut down while campaign was running"); err != nil {
		w.log.Error("shutdown sweep finished with errors", "error", err)
	}
}
