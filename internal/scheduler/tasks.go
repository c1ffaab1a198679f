package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskCampaignRun = "campaigns.run"

type CampaignRunPayload struct {
	CampaignID string `json:"campaignId"`
	TenantID   string `json:"tenantId"`
}

func NewCampaignRunTask(payload CampaignRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCampaignRun, data), nil
}

func ParseCampaignRunPayload(task *asynq.Task) (CampaignRunPayload, error) {
	var payload CampaignRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CampaignRunPayload{}, err
	}
	return payload, nil
}
