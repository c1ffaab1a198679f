package transport

import (
	"time"

	"leadgen_backend/internal/campaigns/repository"

	"github.com/google/uuid"
)

// CreateCampaignRequest contains data for creating a new campaign.
type CreateCampaignRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	Sector      string  `json:"sector" validate:"required,min=1,max=200"`
	Location    string  `json:"location" validate:"required,min=1,max=200"`
	RadiusKM    int     `json:"radiusKm" validate:"min=0,max=500"`
	MaxResults  int     `json:"maxResults" validate:"required,min=1,max=500"`
	Prompt      *string `json:"prompt,omitempty" validate:"omitempty,max=4000"`
	SearchType  string  `json:"searchType,omitempty" validate:"omitempty,oneof=places prompt"`
	NotifyEmail *string `json:"notifyEmail,omitempty" validate:"omitempty,email"`
}

// ListCampaignsRequest carries list pagination.
type ListCampaignsRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// CampaignResponse represents a campaign in API responses, counters included.
type CampaignResponse struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Sector          string     `json:"sector"`
	Location        string     `json:"location"`
	RadiusKM        int        `json:"radiusKm"`
	MaxResults      int        `json:"maxResults"`
	Prompt          *string    `json:"prompt,omitempty"`
	SearchType      string     `json:"searchType"`
	NotifyEmail     *string    `json:"notifyEmail,omitempty"`
	Status          string     `json:"status"`
	TotalFound      int        `json:"totalFound"`
	LeadsCreated    int        `json:"leadsCreated"`
	DuplicatesFound int        `json:"duplicatesFound"`
	ErrorsCount     int        `json:"errorsCount"`
	LastError       *string    `json:"lastError,omitempty"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// CampaignListResponse wraps a page of campaigns.
type CampaignListResponse struct {
	Items []CampaignResponse `json:"items"`
	Total int                `json:"total"`
}

// LeadResponse represents a lead in API responses.
type LeadResponse struct {
	ID          uuid.UUID `json:"id"`
	CampaignID  uuid.UUID `json:"campaignId"`
	CompanyName string    `json:"companyName"`
	Website     *string   `json:"website,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	Email       *string   `json:"email,omitempty"`
	Address     *string   `json:"address,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// LeadListResponse wraps a campaign's leads.
type LeadListResponse struct {
	Items []LeadResponse `json:"items"`
	Total int            `json:"total"`
}

// ToCampaignResponse maps a repository row to its API shape.
func ToCampaignResponse(c repository.Campaign) CampaignResponse {
	return CampaignResponse{
		ID:              c.ID,
		Name:            c.Name,
		Sector:          c.Sector,
		Location:        c.Location,
		RadiusKM:        c.RadiusKM,
		MaxResults:      c.MaxResults,
		Prompt:          c.Prompt,
		SearchType:      string(c.SearchType),
		NotifyEmail:     c.NotifyEmail,
		Status:          string(c.Status),
		TotalFound:      c.TotalFound,
		LeadsCreated:    c.LeadsCreated,
		DuplicatesFound: c.DuplicatesFound,
		ErrorsCount:     c.ErrorsCount,
		LastError:       c.LastError,
		StartedAt:       c.StartedAt,
		CompletedAt:     c.CompletedAt,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// ToLeadResponse maps a lead row to its API shape.
func ToLeadResponse(l repository.Lead) LeadResponse {
	return LeadResponse{
		ID:          l.ID,
		CampaignID:  l.CampaignID,
		CompanyName: l.CompanyName,
		Website:     l.Website,
		Phone:       l.Phone,
		Email:       l.Email,
		Address:     l.Address,
		CreatedAt:   l.CreatedAt,
	}
}
