package email

import (
	"context"

	"leadgen_backend/internal/campaigns/repository"
	"leadgen_backend/internal/events"
	"leadgen_backend/platform/logger"
)

// Notifier subscribes to campaign lifecycle events and mails the campaign's
// notification address when a run reaches a terminal state. Delivery
// failures are logged and never affect campaign state.
type Notifier struct {
	sender Sender
	store  repository.Store
	log    *logger.Logger
}

func NewNotifier(sender Sender, store repository.Store, log *logger.Logger) *Notifier {
	return &Notifier{sender: sender, store: store, log: log}
}

// RegisterHandlers subscribes the notifier on the event bus.
func (n *Notifier) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.CampaignFinished{}.EventName(), n)
}

// Handle routes events to the appropriate handler method.
func (n *Notifier) Handle(ctx context.Context, event events.Event) error {
	finished, ok := event.(events.CampaignFinished)
	if !ok {
		return nil
	}

	campaign, err := n.store.GetByID(ctx, finished.CampaignID, finished.TenantID)
	if err != nil {
		n.log.Error("notification lookup failed", "campaign_id", finished.CampaignID, "error", err)
		return nil
	}
	if campaign.NotifyEmail == nil || *campaign.NotifyEmail == "" {
		return nil
	}

	data := CampaignFinishedData{
		CampaignName:    campaign.Name,
		Status:          finished.Status,
		TotalFound:      finished.TotalFound,
		LeadsCreated:    finished.LeadsCreated,
		DuplicatesFound: finished.DuplicatesFound,
	}
	if finished.ErrorNote != nil {
		data.ErrorNote = *finished.ErrorNote
	}

	if err := n.sender.SendCampaignFinished(ctx, *campaign.NotifyEmail, data); err != nil {
		n.log.Error("campaign notification failed",
			"campaign_id", finished.CampaignID, "error", err)
	}
	return nil
}
