package service

import (
	"context"
	"errors"
	"time"

	"leadgen_backend/internal/campaigns/domain"
	"leadgen_backend/internal/campaigns/repository"
	"leadgen_backend/internal/events"
	"leadgen_backend/platform/apperr"
	"leadgen_backend/platform/logger"

	"github.com/google/uuid"
)

// Dispatcher enqueues campaign run tasks. Implemented by the scheduler
// client; an interface here keeps the service free of queue imports.
type Dispatcher interface {
	EnqueueRun(ctx context.Context, campaignID, tenantID uuid.UUID) error
}

// Service implements the campaign API operations.
type Service struct {
	store      repository.Store
	dispatcher Dispatcher
	bus        events.Bus
	log        *logger.Logger
	now        func() time.Time
}

func New(store repository.Store, dispatcher Dispatcher, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		bus:        bus,
		log:        log,
		now:        time.Now,
	}
}

// CreateParams contains the validated input for a new campaign.
type CreateParams struct {
	TenantID    uuid.UUID
	Name        string
	Sector      string
	Location    string
	RadiusKM    int
	MaxResults  int
	Prompt      *string
	SearchType  string
	NotifyEmail *string
}

func (s *Service) Create(ctx context.Context, params CreateParams) (repository.Campaign, error) {
	searchType := domain.SearchType(params.SearchType)
	if searchType == "" {
		searchType = domain.SearchTypePlaces
	}
	if !searchType.Valid() {
		return repository.Campaign{}, apperr.Validation("unknown search type").WithOp("campaigns.Create")
	}
	if searchType == domain.SearchTypePrompt && (params.Prompt == nil || *params.Prompt == "") {
		return repository.Campaign{}, apperr.Validation("prompt search requires a prompt").WithOp("campaigns.Create")
	}
	if params.MaxResults <= 0 {
		params.MaxResults = 100
	}

	campaign, err := s.store.Create(ctx, repository.CreateCampaignParams{
		TenantID:    params.TenantID,
		Name:        params.Name,
		Sector:      params.Sector,
		Location:    params.Location,
		RadiusKM:    params.RadiusKM,
		MaxResults:  params.MaxResults,
		Prompt:      params.Prompt,
		SearchType:  searchType,
		NotifyEmail: params.NotifyEmail,
	})
	if err != nil {
		s.log.DatabaseError("campaigns.Create", err)
		return repository.Campaign{}, apperr.Wrap(apperr.KindInternal, "failed to create campaign", err)
	}
	return campaign, nil
}

func (s *Service) Get(ctx context.Context, id, tenantID uuid.UUID) (repository.Campaign, error) {
	campaign, err := s.store.GetByID(ctx, id, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Campaign{}, apperr.NotFound("campaign not found")
		}
		s.log.DatabaseError("campaigns.Get", err)
		return repository.Campaign{}, apperr.Wrap(apperr.KindInternal, "failed to load campaign", err)
	}
	return campaign, nil
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]repository.Campaign, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}
	campaigns, total, err := s.store.List(ctx, tenantID, limit, offset)
	if err != nil {
		s.log.DatabaseError("campaigns.List", err)
		return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to list campaigns", err)
	}
	return campaigns, total, nil
}

// Dispatch moves a draft or failed campaign to queued and enqueues its run
// task. An enqueue failure after the status write marks the campaign failed
// so it never sits in queued with no task behind it.
func (s *Service) Dispatch(ctx context.Context, id, tenantID uuid.UUID) (repository.Campaign, error) {
	campaign, err := s.Get(ctx, id, tenantID)
	if err != nil {
		return repository.Campaign{}, err
	}
	if !campaign.Status.IsDispatchable() {
		return repository.Campaign{}, apperr.Conflict("campaign cannot be dispatched from status " + string(campaign.Status))
	}

	now := s.now().UTC()
	moved, err := s.store.MarkQueued(ctx, id, tenantID, now)
	if err != nil {
		s.log.DatabaseError("campaigns.Dispatch", err)
		return repository.Campaign{}, apperr.Wrap(apperr.KindInternal, "failed to queue campaign", err)
	}
	if !moved {
		// Lost the race to a concurrent dispatch or cancel.
		return repository.Campaign{}, apperr.Conflict("campaign is no longer dispatchable")
	}
	s.log.CampaignTransition(id, string(campaign.Status), string(domain.StatusQueued))

	if err := s.dispatcher.EnqueueRun(ctx, id, tenantID); err != nil {
		s.log.Error("failed to enqueue campaign run", "campaign_id", id, "error", err)
		if ferr := s.store.MarkFailed(ctx, id, "dispatch: "+err.Error(), s.now().UTC()); ferr != nil {
			s.log.DatabaseError("campaigns.Dispatch.markFailed", ferr)
		}
		return repository.Campaign{}, apperr.Wrap(apperr.KindUnavailable, "failed to enqueue campaign run", err)
	}

	s.bus.Publish(ctx, events.CampaignQueued{
		BaseEvent:  events.NewBaseEvent(),
		CampaignID: id,
		TenantID:   tenantID,
	})

	return s.Get(ctx, id, tenantID)
}

// Cancel withdraws a campaign that has not started running.
func (s *Service) Cancel(ctx context.Context, id, tenantID uuid.UUID) (repository.Campaign, error) {
	campaign, err := s.Get(ctx, id, tenantID)
	if err != nil {
		return repository.Campaign{}, err
	}
	if !campaign.Status.IsCancellable() {
		return repository.Campaign{}, apperr.Conflict("campaign cannot be cancelled from status " + string(campaign.Status))
	}

	moved, err := s.store.MarkCancelled(ctx, id, tenantID, s.now().UTC())
	if err != nil {
		s.log.DatabaseError("campaigns.Cancel", err)
		return repository.Campaign{}, apperr.Wrap(apperr.KindInternal, "failed to cancel campaign", err)
	}
	if !moved {
		return repository.Campaign{}, apperr.Conflict("campaign is no longer cancellable")
	}
	s.log.CampaignTransition(id, string(campaign.Status), string(domain.StatusCancelled))

	return s.Get(ctx, id, tenantID)
}

func (s *Service) ListLeads(ctx context.Context, campaignID, tenantID uuid.UUID) ([]repository.Lead, error) {
	if _, err := s.Get(ctx, campaignID, tenantID); err != nil {
		return nil, err
	}
	leads, err := s.store.ListLeads(ctx, campaignID, tenantID)
	if err != nil {
		s.log.DatabaseError("campaigns.ListLeads", err)
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list leads", err)
	}
	return leads, nil
}
