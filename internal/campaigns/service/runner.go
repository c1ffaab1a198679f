package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadgen_backend/internal/campaigns/domain"
	"leadgen_backend/internal/campaigns/repository"
	"leadgen_backend/internal/events"
	"leadgen_backend/internal/search"
	"leadgen_backend/platform/logger"
	"leadgen_backend/platform/phone"

	"github.com/google/uuid"
)

// ErrCampaignGone marks a run whose campaign no longer exists. Retrying a
// delivery for a deleted row can never succeed.
var ErrCampaignGone = errors.New("campaign gone")

// RunResult reports what a single campaign run processed.
type RunResult struct {
	Claimed         bool
	TotalFound      int
	LeadsCreated    int
	DuplicatesFound int
}

// Runner executes a campaign: claim, search, dedup, lead creation, terminal
// write. One Runner serves all deliveries of one worker process.
type Runner struct {
	store    repository.Store
	places   search.Provider
	planner  search.Planner
	bus      events.Bus
	log      *logger.Logger
	workerID string
	now      func() time.Time
}

func NewRunner(store repository.Store, places search.Provider, planner search.Planner, bus events.Bus, log *logger.Logger, workerID string) *Runner {
	if planner == nil {
		planner = search.NoopPlanner{}
	}
	return &Runner{
		store:    store,
		places:   places,
		planner:  planner,
		bus:      bus,
		log:      log,
		workerID: workerID,
		now:      time.Now,
	}
}

// Run processes one delivery of a campaign run task.
//
// Errors returned to the caller keep their search classification: the task
// handler retries transient ones and short-circuits permanent ones. A claim
// miss (row not queued) is a successful no-op so duplicate deliveries and
// cancelled campaigns drain silently.
func (r *Runner) Run(ctx context.Context, campaignID, tenantID uuid.UUID) (RunResult, error) {
	log := r.log.WithCampaign(campaignID, tenantID)

	campaign, err := r.store.GetByID(ctx, campaignID, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return RunResult{}, fmt.Errorf("%w: %s", ErrCampaignGone, campaignID)
		}
		return RunResult{}, fmt.Errorf("load campaign: %w", err)
	}

	claimed, err := r.store.ClaimRunning(ctx, campaignID, tenantID, r.workerID, r.now().UTC())
	if err != nil {
		return RunResult{}, fmt.Errorf("claim campaign: %w", err)
	}
	if claimed == nil {
		log.Info("campaign not claimable, skipping delivery", "status", campaign.Status)
		return RunResult{}, nil
	}
	log.CampaignTransition(campaignID, string(domain.StatusQueued), string(domain.StatusRunning))

	result := RunResult{Claimed: true}
	queries, err := r.buildQueries(ctx, *claimed)
	if err != nil {
		return result, err
	}

	// The cap spans deliveries: leads persisted by an earlier attempt of this
	// campaign count against max_results too.
	for _, query := range queries {
		if claimed.LeadsCreated+result.LeadsCreated >= claimed.MaxResults {
			break
		}

		candidates, err := r.places.Search(ctx, query)
		if err != nil {
			return result, fmt.Errorf("search %q: %w", query.Sector, err)
		}

		for _, candidate := range candidates {
			if claimed.LeadsCreated+result.LeadsCreated >= claimed.MaxResults {
				break
			}
			created, leadID, err := r.recordCandidate(ctx, *claimed, candidate)
			if err != nil {
				return result, err
			}
			result.TotalFound++
			if created {
				result.LeadsCreated++
				r.bus.Publish(ctx, events.LeadCreated{
					BaseEvent:  events.NewBaseEvent(),
					LeadID:     leadID,
					CampaignID: campaignID,
					TenantID:   tenantID,
					Company:    candidate.CompanyName,
				})
			} else {
				result.DuplicatesFound++
			}
		}
	}

	if err := r.store.MarkCompleted(ctx, campaignID, r.now().UTC()); err != nil {
		return result, fmt.Errorf("mark completed: %w", err)
	}
	log.CampaignTransition(campaignID, string(domain.StatusRunning), string(domain.StatusCompleted))
	r.publishFinished(ctx, campaignID, tenantID, domain.StatusCompleted, result, nil)

	return result, nil
}

// Requeue returns a running campaign to queued ahead of a retry delivery.
func (r *Runner) Requeue(ctx context.Context, campaignID uuid.UUID) error {
	moved, err := r.store.RequeueForRetry(ctx, campaignID, r.now().UTC())
	if err != nil {
		return fmt.Errorf("requeue campaign: %w", err)
	}
	if moved {
		r.log.CampaignTransition(campaignID, string(domain.StatusRunning), string(domain.StatusQueued))
	}
	return nil
}

// Fail writes the failed terminal state with the given note. The row may be
// in queued or running state depending on where the run gave up.
func (r *Runner) Fail(ctx context.Context, campaignID, tenantID uuid.UUID, note string) error {
	from := domain.StatusRunning
	if campaign, err := r.store.GetByID(ctx, campaignID, tenantID); err == nil {
		from = campaign.Status
	}
	if err := r.store.MarkFailed(ctx, campaignID, note, r.now().UTC()); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	r.log.CampaignTransition(campaignID, string(from), string(domain.StatusFailed))
	r.publishFinished(ctx, campaignID, tenantID, domain.StatusFailed, RunResult{}, &note)
	return nil
}

func (r *Runner) buildQueries(ctx context.Context, campaign repository.Campaign) ([]search.Query, error) {
	base := search.Query{
		Sector:     campaign.Sector,
		Location:   campaign.Location,
		RadiusKM:   campaign.RadiusKM,
		MaxResults: campaign.MaxResults,
	}
	if campaign.SearchType != domain.SearchTypePrompt || campaign.Prompt == nil {
		return []search.Query{base}, nil
	}
	base.Prompt = *campaign.Prompt
	return r.planner.Plan(ctx, *campaign.Prompt, base)
}

func (r *Runner) recordCandidate(ctx context.Context, campaign repository.Campaign, candidate search.Candidate) (bool, uuid.UUID, error) {
	params := repository.LeadParams{
		TenantID:    campaign.TenantID,
		CampaignID:  campaign.ID,
		CompanyName: candidate.CompanyName,
		DedupKey:    domain.DedupKey(candidate.CompanyName, candidate.Website),
	}
	if candidate.Website != "" {
		params.Website = &candidate.Website
	}
	if candidate.Phone != "" {
		normalized := phone.NormalizeE164(candidate.Phone)
		params.Phone = &normalized
	}
	if candidate.Email != "" {
		params.Email = &candidate.Email
	}
	if candidate.Address != "" {
		params.Address = &candidate.Address
	}

	created, leadID, err := r.store.RecordCandidate(ctx, params)
	if err != nil {
		return false, uuid.Nil, fmt.Errorf("record candidate: %w", err)
	}
	return created, leadID, nil
}

func (r *Runner) publishFinished(ctx context.Context, campaignID, tenantID uuid.UUID, status domain.Status, result RunResult, note *string) {
	campaign, err := r.store.GetByID(ctx, campaignID, tenantID)
	if err != nil {
		// Fall back to the in-run counters when the re-read fails.
		campaign = repository.Campaign{
			TotalFound:      result.TotalFound,
			LeadsCreated:    result.LeadsCreated,
			DuplicatesFound: result.DuplicatesFound,
		}
	}
	r.bus.Publish(ctx, events.CampaignFinished{
		BaseEvent:       events.NewBaseEvent(),
		CampaignID:      campaignID,
		TenantID:        tenantID,
		Status:          string(status),
		TotalFound:      campaign.TotalFound,
		LeadsCreated:    campaign.LeadsCreated,
		DuplicatesFound: campaign.DuplicatesFound,
		ErrorNote:       note,
	})
}
