package transport

import (
	"time"

	"github.com/google/uuid"

	"leadranker_backend/internal/scoring/repository"
	"leadranker_backend/internal/scoring/service"
)

// ScoreLeadRequest contains the inbound message submitted for scoring.
type ScoreLeadRequest struct {
	Message        string `json:"message" validate:"required,min=1,max=5000"`
	SubmitterEmail string `json:"submitterEmail,omitempty" validate:"omitempty,email,max=254"`
	SubmitterPhone string `json:"submitterPhone,omitempty" validate:"omitempty,max=32"`
	Source         string `json:"source,omitempty" validate:"omitempty,max=50"`
	Channel        string `json:"channel,omitempty" validate:"omitempty,max=50"`
}

// ScoreLeadResponse is the scoring outcome returned to the caller.
type ScoreLeadResponse struct {
	Lead    LeadResponse            `json:"lead"`
	Billing service.BillingSnapshot `json:"billing"`
}

// LeadResponse represents a scored lead in API responses.
type LeadResponse struct {
	ID             uuid.UUID      `json:"id"`
	Score          int            `json:"score"`
	Bucket         string         `json:"bucket"`
	Sentiment      string         `json:"sentiment"`
	Recommendation string         `json:"recommendation"`
	Entities       map[string]any `json:"entities"`
	SubmitterEmail string         `json:"submitterEmail,omitempty"`
	Source         string         `json:"source,omitempty"`
	Channel        string         `json:"channel,omitempty"`
	ModelVersion   string         `json:"modelVersion,omitempty"`
	CreatedAt      string         `json:"createdAt"`
}

// ListLeadsRequest filters the lead history listing.
type ListLeadsRequest struct {
	Bucket string `form:"bucket" validate:"omitempty,oneof=HOT WARM COLD IGNORE"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset int    `form:"offset" validate:"omitempty,min=0"`
}

// LeadListResponse wraps the lead history listing.
type LeadListResponse struct {
	Items   []LeadResponse `json:"items"`
	Buckets map[string]int `json:"buckets,omitempty"`
}

// ToLeadResponse maps a repository lead to its API shape.
func ToLeadResponse(lead repository.Lead) LeadResponse {
	return LeadResponse{
		ID:             lead.ID,
		Score:          lead.Score,
		Bucket:         lead.Bucket,
		Sentiment:      lead.Sentiment,
		Recommendation: lead.Recommendation,
		Entities:       lead.Entities,
		SubmitterEmail: lead.SubmitterEmail,
		Source:         lead.Source,
		Channel:        lead.Channel,
		ModelVersion:   lead.ModelVersion,
		CreatedAt:      lead.CreatedAt.Format(time.RFC3339),
	}
}
