// Package transport defines request and response DTOs for referral
// endpoints.
package transport

import (
	"time"

	"leadranker_backend/internal/referrals/repository"
	"leadranker_backend/internal/referrals/service"
)

// SubmitReferralRequest creates a pending referral invite.
type SubmitReferralRequest struct {
	RefereeEmail string `json:"refereeEmail" validate:"required,email,max=254"`
}

// ReferralResponse is the API shape of a referral record.
type ReferralResponse struct {
	ID           string     `json:"id"`
	RefereeEmail string     `json:"refereeEmail"`
	Status       string     `json:"status"`
	SubmittedAt  time.Time  `json:"submittedAt"`
	QualifiedAt  *time.Time `json:"qualifiedAt,omitempty"`
	RewardedAt   *time.Time `json:"rewardedAt,omitempty"`
	CreditIssued bool       `json:"creditIssued"`
}

// ReferralListResponse is a referrer's referrals plus aggregate stats.
type ReferralListResponse struct {
	Items []ReferralResponse `json:"items"`
	Stats service.Stats      `json:"stats"`
}

// ToReferralResponse converts a repository referral to its API shape.
func ToReferralResponse(ref repository.Referral) ReferralResponse {
	return ReferralResponse{
		ID:           ref.ID.String(),
		RefereeEmail: ref.RefereeEmail,
		Status:       ref.Status,
		SubmittedAt:  ref.SubmittedAt,
		QualifiedAt:  ref.QualifiedAt,
		RewardedAt:   ref.RewardedAt,
		CreditIssued: ref.StripeCreditID != nil,
	}
}
