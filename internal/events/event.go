// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadranker_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Scoring Domain Events
// =============================================================================

// LeadScored is published after every successful scoring pipeline run.
type LeadScored struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	TenantID uuid.UUID `json:"tenantId"`
	Score    int       `json:"score"`
	Bucket   string    `json:"bucket"`
	Source   string    `json:"source"`
}

func (e LeadScored) EventName() string { return "scoring.lead.scored" }

// HotLeadDetected is published when a scored lead lands in the HOT bucket.
// The alert dispatcher turns it into a notification email.
type HotLeadDetected struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	TenantID       uuid.UUID `json:"tenantId"`
	TenantEmail    string    `json:"tenantEmail"`
	SubmitterEmail string    `json:"submitterEmail"`
	Message        string    `json:"message"`
	Score          int       `json:"score"`
	Sentiment      string    `json:"sentiment"`
	Recommendation string    `json:"recommendation"`
}

func (e HotLeadDetected) EventName() string { return "scoring.lead.hot_detected" }

// =============================================================================
// Billing Domain Events
// =============================================================================

// SubscriptionChanged is published when a payment provider event moved a
// tenant to a new plan or subscription status.
type SubscriptionChanged struct {
	BaseEvent
	TenantID uuid.UUID `json:"tenantId"`
	Plan     string    `json:"plan"`
	Status   string    `json:"status"`
}

func (e SubscriptionChanged) EventName() string { return "billing.subscription.changed" }

// SubscriptionRenewed is published on a successful recurring subscription
// payment. The referral engine listens for it to sweep eligible rewards.
type SubscriptionRenewed struct {
	BaseEvent
	TenantID         uuid.UUID `json:"tenantId"`
	StripeCustomerID string    `json:"stripeCustomerId"`
}

func (e SubscriptionRenewed) EventName() string { return "billing.subscription.renewed" }

// =============================================================================
// Referral Domain Events
// =============================================================================

// ReferralInviteRequested is published when a tenant submits a new referral.
type ReferralInviteRequested struct {
	BaseEvent
	ReferralID    uuid.UUID `json:"referralId"`
	TenantID      uuid.UUID `json:"tenantId"`
	ReferrerName  string    `json:"referrerName"`
	ReferrerEmail string    `json:"referrerEmail"`
	RefereeEmail  string    `json:"refereeEmail"`
}

func (e ReferralInviteRequested) EventName() string { return "referrals.invite.requested" }

// ReferralRewarded is published when a referral credit was granted to the
// referrer's account.
type ReferralRewarded struct {
	BaseEvent
	ReferralID    uuid.UUID `json:"referralId"`
	TenantID      uuid.UUID `json:"tenantId"`
	ReferrerEmail string    `json:"referrerEmail"`
	RefereeEmail  string    `json:"refereeEmail"`
	AmountUSD     int64     `json:"amountUsd"`
}

func (e ReferralRewarded) EventName() string { return "referrals.reward.granted" }
