package service

import (
	"context"
	"sync"
	"time"

	"leadgen_backend/internal/campaigns/domain"
	"leadgen_backend/internal/campaigns/repository"
	"leadgen_backend/internal/events"
	"leadgen_backend/internal/search"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store with the same conditional-write semantics
// as the SQL repository.
type fakeStore struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]*repository.Campaign
	leads     []repository.Lead

	forceFailErr map[uuid.UUID]error
	findErr      error
	recordErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		campaigns:    make(map[uuid.UUID]*repository.Campaign),
		forceFailErr: make(map[uuid.UUID]error),
	}
}

func (f *fakeStore) add(c repository.Campaign) repository.Campaign {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.TenantID == uuid.Nil {
		c.TenantID = uuid.New()
	}
	if c.MaxResults == 0 {
		c.MaxResults = 100
	}
	if c.SearchType == "" {
		c.SearchType = domain.SearchTypePlaces
	}
	cp := c
	f.campaigns[c.ID] = &cp
	return c
}

func (f *fakeStore) get(id uuid.UUID) repository.Campaign {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.campaigns[id]
}

func (f *fakeStore) Create(_ context.Context, params repository.CreateCampaignParams) (repository.Campaign, error) {
	c := repository.Campaign{
		ID:          uuid.New(),
		TenantID:    params.TenantID,
		Name:        params.Name,
		Sector:      params.Sector,
		Location:    params.Location,
		RadiusKM:    params.RadiusKM,
		MaxResults:  params.MaxResults,
		Prompt:      params.Prompt,
		SearchType:  params.SearchType,
		NotifyEmail: params.NotifyEmail,
		Status:      domain.StatusDraft,
		CreatedAt:   time.Now(),
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := c
	f.campaigns[c.ID] = &cp
	return c, nil
}

func (f *fakeStore) GetByID(_ context.Context, id, tenantID uuid.UUID) (repository.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok || c.TenantID != tenantID {
		return repository.Campaign{}, repository.ErrNotFound
	}
	return *c, nil
}

func (f *fakeStore) List(_ context.Context, tenantID uuid.UUID, _, _ int) ([]repository.Campaign, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Campaign, 0)
	for _, c := range f.campaigns {
		if c.TenantID == tenantID {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) MarkQueued(_ context.Context, id, tenantID uuid.UUID, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok || c.TenantID != tenantID || !c.Status.IsDispatchable() {
		return false, nil
	}
	c.Status = domain.StatusQueued
	c.LastError = nil
	c.CompletedAt = nil
	c.StartedAt = nil
	c.LockedBy = nil
	c.LockedAt = nil
	c.UpdatedAt = now
	return true, nil
}

func (f *fakeStore) MarkCancelled(_ context.Context, id, tenantID uuid.UUID, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok || c.TenantID != tenantID || !c.Status.IsCancellable() {
		return false, nil
	}
	c.Status = domain.StatusCancelled
	c.CompletedAt = &now
	c.UpdatedAt = now
	return true, nil
}

func (f *fakeStore) ClaimRunning(_ context.Context, id, tenantID uuid.UUID, workerID string, now time.Time) (*repository.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok || c.TenantID != tenantID || c.Status != domain.StatusQueued {
		return nil, nil
	}
	c.Status = domain.StatusRunning
	c.StartedAt = &now
	c.LockedBy = &workerID
	c.LockedAt = &now
	c.UpdatedAt = now
	cp := *c
	return &cp, nil
}

func (f *fakeStore) RequeueForRetry(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok || c.Status != domain.StatusRunning {
		return false, nil
	}
	c.Status = domain.StatusQueued
	c.StartedAt = nil
	c.LockedBy = nil
	c.LockedAt = nil
	c.UpdatedAt = now
	return true, nil
}

func (f *fakeStore) MarkCompleted(_ context.Context, id uuid.UUID, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok || c.Status != domain.StatusRunning {
		return nil
	}
	c.Status = domain.StatusCompleted
	c.CompletedAt = &now
	c.LockedBy = nil
	c.LockedAt = nil
	c.UpdatedAt = now
	return nil
}

func (f *fakeStore) MarkFailed(_ context.Context, id uuid.UUID, note string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok || (c.Status != domain.StatusQueued && c.Status != domain.StatusRunning) {
		return nil
	}
	c.Status = domain.StatusFailed
	c.CompletedAt = &now
	c.LastError = &note
	c.ErrorsCount++
	c.LockedBy = nil
	c.LockedAt = nil
	c.UpdatedAt = now
	return nil
}

func (f *fakeStore) ForceFailIfRunning(_ context.Context, id uuid.UUID, note string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.forceFailErr[id]; err != nil {
		return false, err
	}
	c, ok := f.campaigns[id]
	if !ok || c.Status != domain.StatusRunning {
		return false, nil
	}
	c.Status = domain.StatusFailed
	c.CompletedAt = &now
	c.LastError = &note
	c.ErrorsCount++
	c.LockedBy = nil
	c.LockedAt = nil
	c.UpdatedAt = now
	return true, nil
}

func (f *fakeStore) FindRunningSince(_ context.Context, cutoff time.Time) ([]repository.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	out := make([]repository.Campaign, 0)
	for _, c := range f.campaigns {
		if c.Status == domain.StatusRunning && c.StartedAt != nil && c.StartedAt.Before(cutoff) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) RecordCandidate(_ context.Context, params repository.LeadParams) (bool, uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return false, uuid.Nil, f.recordErr
	}
	c := f.campaigns[params.CampaignID]
	c.TotalFound++
	for _, l := range f.leads {
		if l.TenantID == params.TenantID && l.DedupKey == params.DedupKey {
			c.DuplicatesFound++
			return false, uuid.Nil, nil
		}
	}
	lead := repository.Lead{
		ID:          uuid.New(),
		TenantID:    params.TenantID,
		CampaignID:  params.CampaignID,
		CompanyName: params.CompanyName,
		Website:     params.Website,
		Phone:       params.Phone,
		Email:       params.Email,
		Address:     params.Address,
		DedupKey:    params.DedupKey,
		CreatedAt:   time.Now(),
	}
	f.leads = append(f.leads, lead)
	c.LeadsCreated++
	return true, lead.ID, nil
}

func (f *fakeStore) ListLeads(_ context.Context, campaignID, tenantID uuid.UUID) ([]repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Lead, 0)
	for _, l := range f.leads {
		if l.CampaignID == campaignID && l.TenantID == tenantID {
			out = append(out, l)
		}
	}
	return out, nil
}

// fakeProvider returns canned candidates or a canned error.
type fakeProvider struct {
	candidates []search.Candidate
	err        error
	calls      int
}

func (p *fakeProvider) Search(_ context.Context, _ search.Query) ([]search.Candidate, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.candidates, nil
}

// fakeDispatcher records enqueues and optionally fails them.
type fakeDispatcher struct {
	mu       sync.Mutex
	enqueued []uuid.UUID
	err      error
}

func (d *fakeDispatcher) EnqueueRun(_ context.Context, campaignID, _ uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.enqueued = append(d.enqueued, campaignID)
	return nil
}

// nopBus drops all events.
type nopBus struct{}

func (nopBus) Publish(context.Context, events.Event)           {}
func (nopBus) PublishSync(context.Context, events.Event) error { return nil }
func (nopBus) Subscribe(string, events.Handler)                {}
