package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RecordCandidate inserts the candidate as a lead unless the tenant already
// holds a live lead with the same dedup key, then bumps the campaign counters
// in the same transaction. A crash between the two statements can therefore
// never leave a counted lead missing or an uncounted lead present.
func (r *Repository) RecordCandidate(ctx context.Context, params LeadParams) (bool, uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, uuid.Nil, fmt.Errorf("begin record candidate: %w", err)
	}
	defer tx.Rollback(ctx)

	var leadID uuid.UUID
	created := true
	err = tx.QueryRow(ctx, `
		INSERT INTO leads (
			id, tenant_id, campaign_id, company_name, website, phone, email,
			address, dedup_key
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tenant_id, dedup_key) WHERE deleted_at IS NULL DO NOTHING
		RETURNING id`,
		uuid.New(), params.TenantID, params.CampaignID, params.CompanyName,
		params.Website, params.Phone, params.Email, params.Address,
		params.DedupKey,
	).Scan(&leadID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return false, uuid.Nil, fmt.Errorf("insert lead: %w", err)
		}
		// Conflict: the tenant already has this lead.
		created = false
	}

	_, err = tx.Exec(ctx, `
		UPDATE campaigns
		SET total_found = total_found + 1,
		    leads_created = leads_created + $1,
		    duplicates_found = duplicates_found + $2,
		    updated_at = now()
		WHERE id = $3`,
		boolToInt(created), boolToInt(!created), params.CampaignID,
	)
	if err != nil {
		return false, uuid.Nil, fmt.Errorf("update campaign counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, uuid.Nil, fmt.Errorf("commit record candidate: %w", err)
	}
	return created, leadID, nil
}

func (r *Repository) ListLeads(ctx context.Context, campaignID, tenantID uuid.UUID) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, campaign_id, company_name, website, phone,
		       email, address, dedup_key, created_at, deleted_at
		FROM leads
		WHERE campaign_id = $1 AND tenant_id = $2 AND deleted_at IS NULL
		ORDER BY created_at ASC`,
		campaignID, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		var l Lead
		if err := rows.Scan(
			&l.ID, &l.TenantID, &l.CampaignID, &l.CompanyName, &l.Website,
			&l.Phone, &l.Email, &l.Address, &l.DedupKey, &l.CreatedAt,
			&l.DeletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
