// Package email delivers campaign notifications over SMTP.
package email

import (
	"context"

	"leadgen_backend/platform/config"
)

// CampaignFinishedData carries the fields rendered into the completion mail.
type CampaignFinishedData struct {
	CampaignName    string
	Status          string
	TotalFound      int
	LeadsCreated    int
	DuplicatesFound int
	ErrorNote       string
}

// Sender delivers campaign notification emails.
type Sender interface {
	SendCampaignFinished(ctx context.Context, toEmail string, data CampaignFinishedData) error
}

// NewSender returns the SMTP sender when email is configured and a no-op
// sender otherwise, so callers never branch on configuration.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.IsEmailEnabled() {
		return noopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}

type noopSender struct{}

func (noopSender) SendCampaignFinished(context.Context, string, CampaignFinishedData) error {
	return nil
}
