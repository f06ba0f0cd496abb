package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskReferralRewardSweep = "referrals.reward.sweep"

type ReferralRewardSweepPayload struct {
	StripeCustomerID string `json:"stripeCustomerId"`
}

func NewReferralRewardSweepTask(payload ReferralRewardSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReferralRewardSweep, data), nil
}

func ParseReferralRewardSweepPayload(task *asynq.Task) (ReferralRewardSweepPayload, error) {
	var payload ReferralRewardSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ReferralRewardSweepPayload{}, err
	}
	return payload, nil
}
