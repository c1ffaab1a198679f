package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadgen_backend/internal/campaigns/domain"
	"leadgen_backend/internal/campaigns/repository"
	"leadgen_backend/internal/events"
	"leadgen_backend/platform/logger"
)

// Monitor reconciles campaigns stuck in running state after worker crashes
// or hard kills.
type Monitor struct {
	store repository.Store
	bus   events.Bus
	log   *logger.Logger
	now   func() time.Time
}

func NewMonitor(store repository.Store, bus events.Bus, log *logger.Logger) *Monitor {
	return &Monitor{store: store, bus: bus, log: log, now: time.Now}
}

// SweepResult reports one reconciliation pass.
type SweepResult struct {
	Found  int
	Failed int
	Errors int
}

// ForceFailStuck force-fails every campaign that has been running longer
// than maxDuration. Per-campaign errors are collected and never abort the
// pass, so one bad row cannot shield the rest. The pass is idempotent: rows
// already reconciled (or finished by a racing worker) are skipped by the
// conditional terminal write.
func (m *Monitor) ForceFailStuck(ctx context.Context, maxDuration time.Duration, reason string) (SweepResult, error) {
	cutoff := m.now().UTC().Add(-maxDuration)

	stuck, err := m.store.FindRunningSince(ctx, cutoff)
	if err != nil {
		return SweepResult{}, fmt.Errorf("find stuck campaigns: %w", err)
	}

	result := SweepResult{Found: len(stuck)}
	var errs []error
	for _, campaign := range stuck {
		note := m.failureNote(campaign, maxDuration, reason)
		failed, err := m.store.ForceFailIfRunning(ctx, campaign.ID, note, m.now().UTC())
		if err != nil {
			result.Errors++
			errs = append(errs, fmt.Errorf("campaign %s: %w", campaign.ID, err))
			continue
		}
		if !failed {
			// A worker finished the campaign between the scan and the write.
			continue
		}
		result.Failed++
		m.log.CampaignTransition(campaign.ID, string(domain.StatusRunning), string(domain.StatusFailed))
		m.bus.Publish(ctx, events.CampaignFinished{
			BaseEvent:       events.NewBaseEvent(),
			CampaignID:      campaign.ID,
			TenantID:        campaign.TenantID,
			Status:          string(domain.StatusFailed),
			TotalFound:      campaign.TotalFound,
			LeadsCreated:    campaign.LeadsCreated,
			DuplicatesFound: campaign.DuplicatesFound,
			ErrorNote:       &note,
		})
	}

	m.log.WorkerEvent("stuck_sweep", result.Found, result.Failed, result.Errors)
	return result, errors.Join(errs...)
}

// CleanupStuckOnStartup repairs rows orphaned by a previous worker process.
// Anything still running past the boot grace has no live owner: the worker
// that claimed it is gone, so the short threshold applies.
func (m *Monitor) CleanupStuckOnStartup(ctx context.Context, grace time.Duration) (SweepResult, error) {
	return m.ForceFailStuck(ctx, grace, "worker restarted while campaign was running")
}

// ForceFailOwned fails every running campaign leased by the given worker.
// Called on worker shutdown so an in-flight run killed mid-task does not
// wait for the periodic sweep.
func (m *Monitor) ForceFailOwned(ctx context.Context, workerID, reason string) (SweepResult, error) {
	running, err := m.store.FindRunningSince(ctx, m.now().UTC())
	if err != nil {
		return SweepResult{}, fmt.Errorf("find running campaigns: %w", err)
	}

	result := SweepResult{}
	var errs []error
	for _, campaign := range running {
		if campaign.LockedBy == nil || *campaign.LockedBy != workerID {
			continue
		}
		result.Found++
		note := fmt.Sprintf("%s (owner=%s)", reason, workerID)
		failed, err := m.store.ForceFailIfRunning(ctx, campaign.ID, note, m.now().UTC())
		if err != nil {
			result.Errors++
			errs = append(errs, fmt.Errorf("campaign %s: %w", campaign.ID, err))
			continue
		}
		if failed {
			result.Failed++
			m.log.CampaignTransition(campaign.ID, string(domain.StatusRunning), string(domain.StatusFailed))
		}
	}

	m.log.WorkerEvent("shutdown_sweep", result.Found, result.Failed, result.Errors)
	return result, errors.Join(errs...)
}

// RunPeriodic sweeps on a fixed interval until the context is cancelled.
// A non-positive interval falls back to a default rather than panicking
// inside the sweep goroutine.
func (m *Monitor) RunPeriodic(ctx context.Context, interval, maxDuration time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.ForceFailStuck(ctx, maxDuration, "campaign exceeded maximum run duration"); err != nil {
				m.log.Error("stuck campaign sweep finished with errors", "error", err)
			}
		}
	}
}

func (m *Monitor) failureNote(campaign repository.Campaign, maxDuration time.Duration, reason string) string {
	owner := "unknown"
	if campaign.LockedBy != nil {
		owner = *campaign.LockedBy
	}
	age := time.Duration(0)
	if campaign.StartedAt != nil {
		age = m.now().UTC().Sub(*campaign.StartedAt).Round(time.Second)
	}
	return fmt.Sprintf("%s (owner=%s, running for %s, threshold %s)", reason, owner, age, maxDuration)
}
