package events

import "github.com/google/uuid"

// CampaignQueued fires when a campaign is accepted for dispatch.
type CampaignQueued struct {
	BaseEvent
	CampaignID uuid.UUID
	TenantID   uuid.UUID
}

func (e CampaignQueued) EventName() string { return "campaigns.campaign.queued" }

// CampaignFinished fires on any terminal transition written by the worker or
// the monitor. Status is the terminal status (completed or failed).
type CampaignFinished struct {
	BaseEvent
	CampaignID      uuid.UUID
	TenantID        uuid.UUID
	Status          string
	TotalFound      int
	LeadsCreated    int
	DuplicatesFound int
	ErrorNote       *string
}

func (e CampaignFinished) EventName() string { return "campaigns.campaign.finished" }

// LeadCreated fires for every lead row a campaign run inserts.
type LeadCreated struct {
	BaseEvent
	LeadID     uuid.UUID
	CampaignID uuid.UUID
	TenantID   uuid.UUID
	Company    string
}

func (e LeadCreated) EventName() string { return "campaigns.lead.created" }
