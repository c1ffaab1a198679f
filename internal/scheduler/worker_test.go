package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"leadgen_backend/internal/campaigns/domain"
	"leadgen_backend/internal/campaigns/repository"
	"leadgen_backend/internal/campaigns/service"
	"leadgen_backend/internal/events"
	"leadgen_backend/internal/search"
	"leadgen_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

func TestClassifyRunError(t *testing.T) {
	transient := search.NewTransientError("places", errors.New("upstream api error: 503"))
	permanent := search.NewPermanentError("places", errors.New("upstream api error: 400"))
	gone := fmt.Errorf("%w: deleted", service.ErrCampaignGone)
	plain := errors.New("scan campaign: bad column")

	tests := []struct {
		name     string
		err      error
		retried  int
		maxRetry int
		want     decision
	}{
		{"transient with retries left", transient, 0, 3, decisionRetry},
		{"transient mid-retry", fmt.Errorf("search %q: %w", "plumber", transient), 2, 3, decisionRetry},
		{"transient exhausted", transient, 3, 3, decisionFailExhausted},
		{"permanent", permanent, 0, 3, decisionFailPermanent},
		{"permanent wrapped", fmt.Errorf("search: %w", permanent), 0, 3, decisionFailPermanent},
		{"unclassified is permanent", plain, 0, 3, decisionFailPermanent},
		{"missing campaign", gone, 0, 3, decisionDrop},
	}

	for _, tt := range tests {
		if got := classifyRunError(tt.err, tt.retried, tt.maxRetry); got != tt.want {
			t.Fatalf("%s: classifyRunError() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestRetryDelayFuncGrows(t *testing.T) {
	delay := retryDelayFunc(5 * time.Minute)

	want := []time.Duration{5 * time.Minute, 10 * time.Minute, 20 * time.Minute}
	for i, expected := range want {
		if got := delay(i+1, nil, nil); got != expected {
			t.Fatalf("attempt %d: delay = %s, want %s", i+1, got, expected)
		}
	}
}

func TestRetryDelayFuncDefaultsBase(t *testing.T) {
	delay := retryDelayFunc(0)
	if got := delay(1, nil, nil); got != 5*time.Minute {
		t.Fatalf("zero base delay = %s, want 5m fallback", got)
	}
}

// retryStore is an in-memory repository.Store with the conditional-write
// semantics the retry loop depends on: claim from queued, requeue from
// running, terminal fail from either.
type retryStore struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]*repository.Campaign
}

func newRetryStore() *retryStore {
	return &retryStore{campaigns: make(map[uuid.UUID]*repository.Campaign)}
}

func (s *retryStore) add(c repository.Campaign) repository.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
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
	s.campaigns[c.ID] = &cp
	return c
}

func (s *retryStore) get(id uuid.UUID) repository.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.campaigns[id]
}

func (s *retryStore) GetByID(_ context.Context, id, tenantID uuid.UUID) (repository.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok || c.TenantID != tenantID {
		return repository.Campaign{}, repository.ErrNotFound
	}
	return *c, nil
}

func (s *retryStore) ClaimRunning(_ context.Context, id, tenantID uuid.UUID, workerID string, now time.Time) (*repository.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok || c.TenantID != tenantID || c.Status != domain.StatusQueued {
		return nil, nil
	}
	c.Status = domain.StatusRunning
	c.StartedAt = &now
	c.LockedBy = &workerID
	c.LockedAt = &now
	cp := *c
	return &cp, nil
}

func (s *retryStore) RequeueForRetry(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
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

func (s *retryStore) MarkFailed(_ context.Context, id uuid.UUID, note string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
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

func (s *retryStore) Create(context.Context, repository.CreateCampaignParams) (repository.Campaign, error) {
	return repository.Campaign{}, nil
}
func (s *retryStore) List(context.Context, uuid.UUID, int, int) ([]repository.Campaign, int, error) {
	return nil, 0, nil
}
func (s *retryStore) MarkQueued(context.Context, uuid.UUID, uuid.UUID, time.Time) (bool, error) {
	return false, nil
}
func (s *retryStore) MarkCancelled(context.Context, uuid.UUID, uuid.UUID, time.Time) (bool, error) {
	return false, nil
}
func (s *retryStore) MarkCompleted(context.Context, uuid.UUID, time.Time) error { return nil }
func (s *retryStore) ForceFailIfRunning(context.Context, uuid.UUID, string, time.Time) (bool, error) {
	return false, nil
}
func (s *retryStore) FindRunningSince(context.Context, time.Time) ([]repository.Campaign, error) {
	return nil, nil
}
func (s *retryStore) RecordCandidate(context.Context, repository.LeadParams) (bool, uuid.UUID, error) {
	return false, uuid.Nil, nil
}
func (s *retryStore) ListLeads(context.Context, uuid.UUID, uuid.UUID) ([]repository.Lead, error) {
	return nil, nil
}

// flakyProvider fails every search with a transient error and counts attempts.
type flakyProvider struct {
	mu    sync.Mutex
	calls int
}

func (p *flakyProvider) Search(context.Context, search.Query) ([]search.Candidate, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return nil, search.NewTransientError("places", errors.New("upstream api error: 503"))
}

func (p *flakyProvider) attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type dropBus struct{}

func (dropBus) Publish(context.Context, events.Event)           {}
func (dropBus) PublishSync(context.Context, events.Event) error { return nil }
func (dropBus) Subscribe(string, events.Handler)                {}

// TestRetryLoopExhaustsThenFails drives a transiently failing campaign
// through a real asynq server: the handler requeues and redelivers until
// MaxRetry is spent, then writes the failed terminal state. Delivery delays
// are zeroed so the whole loop runs inside the test timeout.
func TestRetryLoopExhaustsThenFails(t *testing.T) {
	redisSrv := miniredis.RunT(t)

	store := newRetryStore()
	c := store.add(repository.Campaign{Status: domain.StatusQueued})

	provider := &flakyProvider{}
	log := logger.New("development")
	runner := service.NewRunner(store, provider, nil, dropBus{}, log, "worker-test")
	w := &Worker{runner: runner, log: log}

	opt, err := redisClientOpt("redis://"+redisSrv.Addr(), false)
	if err != nil {
		t.Fatalf("redisClientOpt() error = %v", err)
	}
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency:              1,
		Queues:                   map[string]int{"campaigns": 1},
		RetryDelayFunc:           func(int, error, *asynq.Task) time.Duration { return 0 },
		DelayedTaskCheckInterval: 50 * time.Millisecond,
		LogLevel:                 asynq.FatalLevel,
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskCampaignRun, w.handleCampaignRun)
	if err := server.Start(mux); err != nil {
		t.Fatalf("server.Start() error = %v", err)
	}
	defer server.Shutdown()

	client, err := NewClient(clientTestConfig{redisURL: "redis://" + redisSrv.Addr()})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()
	if err := client.EnqueueRun(context.Background(), c.ID, c.TenantID); err != nil {
		t.Fatalf("EnqueueRun() error = %v", err)
	}

	deadline := time.After(15 * time.Second)
	for store.get(c.ID).Status != domain.StatusFailed {
		select {
		case <-deadline:
			t.Fatalf("campaign never reached failed; attempts = %d, status = %s",
				provider.attempts(), store.get(c.ID).Status)
		case <-time.After(20 * time.Millisecond):
		}
	}

	if got := provider.attempts(); got != 4 {
		t.Fatalf("attempts = %d, want max retry 3 + 1", got)
	}
	got := store.get(c.ID)
	if got.LastError == nil || !strings.Contains(*got.LastError, "after 4 attempts") {
		t.Fatalf("failure note missing attempt count: %v", got.LastError)
	}
	if got.CompletedAt == nil {
		t.Fatalf("completed_at not set on exhausted failure")
	}
}
