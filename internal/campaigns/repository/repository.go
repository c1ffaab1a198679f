package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadgen_backend/internal/campaigns/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a campaign does not exist or belongs to
// another tenant.
var ErrNotFound = errors.New("campaign not found")

// Repository is the pgx implementation of Store.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const campaignColumns = `
	id, tenant_id, name, sector, location, radius_km, max_results, prompt,
	search_type, notify_email, status, total_found, leads_created,
	duplicates_found, errors_count, last_error, locked_by, locked_at,
	started_at, completed_at, created_at, updated_at`

func scanCampaign(row pgx.Row) (Campaign, error) {
	var c Campaign
	err := row.Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Sector, &c.Location, &c.RadiusKM,
		&c.MaxResults, &c.Prompt, &c.SearchType, &c.NotifyEmail, &c.Status,
		&c.TotalFound, &c.LeadsCreated, &c.DuplicatesFound, &c.ErrorsCount,
		&c.LastError, &c.LockedBy, &c.LockedAt, &c.StartedAt, &c.CompletedAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (r *Repository) Create(ctx context.Context, params CreateCampaignParams) (Campaign, error) {
	query := `
		INSERT INTO campaigns (
			id, tenant_id, name, sector, location, radius_km, max_results,
			prompt, search_type, notify_email, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING` + campaignColumns

	c, err := scanCampaign(r.pool.QueryRow(ctx, query,
		uuid.New(), params.TenantID, params.Name, params.Sector,
		params.Location, params.RadiusKM, params.MaxResults, params.Prompt,
		params.SearchType, params.NotifyEmail, domain.StatusDraft,
	))
	if err != nil {
		return Campaign{}, fmt.Errorf("create campaign: %w", err)
	}
	return c, nil
}

func (r *Repository) GetByID(ctx context.Context, id, tenantID uuid.UUID) (Campaign, error) {
	query := `SELECT` + campaignColumns + `
		FROM campaigns
		WHERE id = $1 AND tenant_id = $2`

	c, err := scanCampaign(r.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		return Campaign{}, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]Campaign, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM campaigns WHERE tenant_id = $1`, tenantID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	query := `SELECT` + campaignColumns + `
		FROM campaigns
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := make([]Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, total, rows.Err()
}

// MarkQueued is conditional on a dispatchable status so two concurrent
// dispatch requests cannot both enqueue the campaign.
func (r *Repository) MarkQueued(ctx context.Context, id, tenantID uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns
		SET status = $1, last_error = NULL, completed_at = NULL,
		    started_at = NULL, locked_by = NULL, locked_at = NULL,
		    updated_at = $2
		WHERE id = $3 AND tenant_id = $4 AND status IN ($5, $6)`,
		domain.StatusQueued, now, id, tenantID,
		domain.StatusDraft, domain.StatusFailed,
	)
	if err != nil {
		return false, fmt.Errorf("mark campaign queued: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) MarkCancelled(ctx context.Context, id, tenantID uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns
		SET status = $1, completed_at = $2, updated_at = $2
		WHERE id = $3 AND tenant_id = $4 AND status IN ($5, $6)`,
		domain.StatusCancelled, now, id, tenantID,
		domain.StatusDraft, domain.StatusQueued,
	)
	if err != nil {
		return false, fmt.Errorf("mark campaign cancelled: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ClaimRunning atomically takes ownership of a queued campaign. The status
// guard makes the claim safe under duplicate task delivery: only one worker
// observes the queued row.
func (r *Repository) ClaimRunning(ctx context.Context, id, tenantID uuid.UUID, workerID string, now time.Time) (*Campaign, error) {
	query := `
		UPDATE campaigns
		SET status = $1, started_at = $2, locked_by = $3, locked_at = $2,
		    updated_at = $2
		WHERE id = $4 AND tenant_id = $5 AND status = $6
		RETURNING` + campaignColumns

	c, err := scanCampaign(r.pool.QueryRow(ctx, query,
		domain.StatusRunning, now, workerID, id, tenantID, domain.StatusQueued,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim campaign: %w", err)
	}
	return &c, nil
}

// RequeueForRetry returns a running campaign to the queue ahead of a retry
// delivery. Progress counters are kept; started_at and the lease are cleared
// so the next claim stamps fresh ownership.
func (r *Repository) RequeueForRetry(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns
		SET status = $1, started_at = NULL, locked_by = NULL,
		    locked_at = NULL, updated_at = $2
		WHERE id = $3 AND status = $4`,
		domain.StatusQueued, now, id, domain.StatusRunning,
	)
	if err != nil {
		return false, fmt.Errorf("requeue campaign: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, now time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE campaigns
		SET status = $1, completed_at = $2, locked_by = NULL,
		    locked_at = NULL, updated_at = $2
		WHERE id = $3 AND status = $4`,
		domain.StatusCompleted, now, id, domain.StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("mark campaign completed: %w", err)
	}
	return nil
}

func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, note string, now time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE campaigns
		SET status = $1, completed_at = $2, last_error = $3,
		    errors_count = errors_count + 1, locked_by = NULL,
		    locked_at = NULL, updated_at = $2
		WHERE id = $4 AND status IN ($5, $6)`,
		domain.StatusFailed, now, note, id,
		domain.StatusQueued, domain.StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("mark campaign failed: %w", err)
	}
	return nil
}

func (r *Repository) ForceFailIfRunning(ctx context.Context, id uuid.UUID, note string, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns
		SET status = $1, completed_at = $2, last_error = $3,
		    errors_count = errors_count + 1, locked_by = NULL,
		    locked_at = NULL, updated_at = $2
		WHERE id = $4 AND status = $5`,
		domain.StatusFailed, now, note, id, domain.StatusRunning,
	)
	if err != nil {
		return false, fmt.Errorf("force fail campaign: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) FindRunningSince(ctx context.Context, cutoff time.Time) ([]Campaign, error) {
	query := `SELECT` + campaignColumns + `
		FROM campaigns
		WHERE status = $1 AND started_at IS NOT NULL AND started_at < $2
		ORDER BY started_at ASC`

	rows, err := r.pool.Query(ctx, query, domain.StatusRunning, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find running campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := make([]Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}
