package repository

import (
	"context"
	"time"

	"leadgen_backend/internal/campaigns/domain"

	"github.com/google/uuid"
)

// Campaign is a tenant-owned unit of lead-generation work.
type Campaign struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Name            string
	Sector          string
	Location        string
	RadiusKM        int
	MaxResults      int
	Prompt          *string
	SearchType      domain.SearchType
	NotifyEmail     *string
	Status          domain.Status
	TotalFound      int
	LeadsCreated    int
	DuplicatesFound int
	ErrorsCount     int
	LastError       *string
	LockedBy        *string
	LockedAt        *time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Lead is a single business contact produced by a campaign run.
type Lead struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	CampaignID  uuid.UUID
	CompanyName string
	Website     *string
	Phone       *string
	Email       *string
	Address     *string
	DedupKey    string
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

// CreateCampaignParams contains parameters for creating a campaign.
type CreateCampaignParams struct {
	TenantID    uuid.UUID
	Name        string
	Sector      string
	Location    string
	RadiusKM    int
	MaxResults  int
	Prompt      *string
	SearchType  domain.SearchType
	NotifyEmail *string
}

// LeadParams contains parameters for recording a search candidate.
type LeadParams struct {
	TenantID    uuid.UUID
	CampaignID  uuid.UUID
	CompanyName string
	Website     *string
	Phone       *string
	Email       *string
	Address     *string
	DedupKey    string
}

// Store is the persistence port the campaign services depend on. The pgx
// Repository implements it; tests substitute an in-memory fake.
type Store interface {
	Create(ctx context.Context, params CreateCampaignParams) (Campaign, error)
	GetByID(ctx context.Context, id, tenantID uuid.UUID) (Campaign, error)
	List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Campaign, int, error)

	// MarkQueued transitions a dispatchable campaign (draft or failed) to
	// queued. Returns false when the campaign was not in a dispatchable
	// state, so concurrent dispatches cannot double-enqueue.
	MarkQueued(ctx context.Context, id, tenantID uuid.UUID, now time.Time) (bool, error)

	// MarkCancelled transitions a draft or queued campaign to cancelled.
	MarkCancelled(ctx context.Context, id, tenantID uuid.UUID, now time.Time) (bool, error)

	// ClaimRunning performs the queued->running claim, stamping started_at
	// and the worker lease. Returns nil (no error) when the row was not in
	// queued state, which callers treat as a duplicate delivery.
	ClaimRunning(ctx context.Context, id, tenantID uuid.UUID, workerID string, now time.Time) (*Campaign, error)

	// RequeueForRetry returns a running campaign to queued ahead of a
	// transient-failure retry, clearing started_at and the lease.
	RequeueForRetry(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)

	// MarkCompleted writes the successful terminal state.
	MarkCompleted(ctx context.Context, id uuid.UUID, now time.Time) error

	// MarkFailed writes the failed terminal state from queued or running,
	// incrementing errors_count and persisting the note.
	MarkFailed(ctx context.Context, id uuid.UUID, note string, now time.Time) error

	// ForceFailIfRunning is MarkFailed restricted to rows still in running
	// state; the monitor uses it so it never clobbers a terminal write that
	// raced the sweep.
	ForceFailIfRunning(ctx context.Context, id uuid.UUID, note string, now time.Time) (bool, error)

	// FindRunningSince returns campaigns still running whose started_at is
	// before the cutoff.
	FindRunningSince(ctx context.Context, cutoff time.Time) ([]Campaign, error)

	// RecordCandidate inserts the lead unless the tenant already has a live
	// lead with the same dedup key, and bumps the campaign counters in the
	// same transaction so observed progress is crash-consistent.
	RecordCandidate(ctx context.Context, params LeadParams) (created bool, leadID uuid.UUID, err error)

	ListLeads(ctx context.Context, campaignID, tenantID uuid.UUID) ([]Lead, error)
}
