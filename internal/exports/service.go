// Package exports builds CSV exports of a campaign's leads.
package exports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"time"

	"leadgen_backend/internal/adapters/storage"
	"leadgen_backend/internal/campaigns/repository"
	"leadgen_backend/platform/apperr"
	"leadgen_backend/platform/logger"

	"github.com/google/uuid"
)

const contentTypeCSV = "text/csv"

// Result is a finished export: either a presigned URL to a stored artifact
// or the CSV bytes for inline download.
type Result struct {
	Filename    string
	ContentType string
	Data        []byte
	URL         string
	ExpiresAt   *time.Time
}

// Service exports campaign leads as CSV, uploading to object storage when
// it is configured and streaming inline otherwise.
type Service struct {
	store   repository.Store
	storage storage.StorageService
	bucket  string
	log     *logger.Logger
	now     func() time.Time
}

// New creates the export service. storageSvc may be nil, in which case all
// exports are returned inline.
func New(store repository.Store, storageSvc storage.StorageService, bucket string, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		storage: storageSvc,
		bucket:  bucket,
		log:     log,
		now:     time.Now,
	}
}

// ExportCampaignCSV renders every live lead of the campaign to CSV.
func (s *Service) ExportCampaignCSV(ctx context.Context, campaignID, tenantID uuid.UUID) (Result, error) {
	campaign, err := s.store.GetByID(ctx, campaignID, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Result{}, apperr.NotFound("campaign not found")
		}
		return Result{}, apperr.Wrap(apperr.KindInternal, "failed to load campaign", err)
	}

	leads, err := s.store.ListLeads(ctx, campaignID, tenantID)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, "failed to list leads", err)
	}

	data, err := renderCSV(leads)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, "failed to render export", err)
	}

	filename := fmt.Sprintf("%s-leads-%s.csv", sanitizeFilename(campaign.Name), s.now().UTC().Format("20060102-150405"))
	result := Result{
		Filename:    filename,
		ContentType: contentTypeCSV,
		Data:        data,
	}

	if s.storage == nil {
		return result, nil
	}

	folder := fmt.Sprintf("%s/%s", tenantID, campaignID)
	fileKey, err := s.storage.UploadFile(ctx, s.bucket, folder, filename, contentTypeCSV, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		// Storage being down should not block the download.
		s.log.Error("export upload failed, serving inline", "error", err, "campaign_id", campaignID)
		return result, nil
	}

	presigned, err := s.storage.GenerateDownloadURL(ctx, s.bucket, fileKey)
	if err != nil {
		s.log.Error("export presign failed, serving inline", "error", err, "campaign_id", campaignID)
		return result, nil
	}

	result.Data = nil
	result.URL = presigned.URL
	result.ExpiresAt = &presigned.ExpiresAt
	return result, nil
}

var csvHeader = []string{"company_name", "website", "phone", "email", "address", "created_at"}

func renderCSV(leads []repository.Lead) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, l := range leads {
		record := []string{
			l.CompanyName,
			deref(l.Website),
			deref(l.Phone),
			deref(l.Email),
			deref(l.Address),
			l.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == ' ', r == '-', r == '_':
			out = append(out, '-')
		}
	}
	if len(out) == 0 {
		return "campaign"
	}
	return string(out)
}
