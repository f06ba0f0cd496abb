// Package repository persists referral records and their pending →
// qualified → rewarded lifecycle.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Referral lifecycle states.
const (
	StatusPending   = "pending"
	StatusQualified = "qualified"
	StatusRewarded  = "rewarded"
)

// Referral is one referred email and its reward progress.
type Referral struct {
	ID               uuid.UUID
	ReferrerTenantID uuid.UUID
	ReferrerEmail    string
	RefereeEmail     string
	RefereeTenantID  *uuid.UUID
	Status           string
	SubmittedAt      time.Time
	QualifiedAt      *time.Time
	RewardedAt       *time.Time
	StripeCreditID   *string
	CreditError      *string
}

// Repository defines referral persistence operations.
type Repository interface {
	// Insert creates a pending referral. A duplicate referee email for the
	// same referrer returns a Conflict error.
	Insert(ctx context.Context, referrerTenantID uuid.UUID, referrerEmail, refereeEmail string) (Referral, error)
	// CountOutstanding counts the referrer's pending referrals.
	CountOutstanding(ctx context.Context, referrerTenantID uuid.UUID) (int, error)
	// ListByReferrer returns all of the referrer's referrals, newest first.
	ListByReferrer(ctx context.Context, referrerTenantID uuid.UUID) ([]Referral, error)
	// QualifyFirstPending moves the oldest pending referral for the email
	// to qualified and stamps the referee tenant. Returns found=false when
	// no pending referral matches.
	QualifyFirstPending(ctx context.Context, refereeEmail string, refereeTenantID uuid.UUID) (Referral, bool, error)
	// ListRewardable returns qualified referrals for the referee tenant
	// whose qualification is at or before the cutoff.
	ListRewardable(ctx context.Context, refereeTenantID uuid.UUID, cutoff time.Time) ([]Referral, error)
	// ClaimReward conditionally moves a referral from qualified to
	// rewarded. Returns false when another worker already claimed it.
	ClaimReward(ctx context.Context, referralID uuid.UUID) (bool, error)
	// RecordCredit stores the issued provider credit id.
	RecordCredit(ctx context.Context, referralID uuid.UUID, creditID string) error
	// RecordCreditError stores a failed credit attempt. The referral stays
	// rewarded; the failure is surfaced for manual reconciliation.
	RecordCreditError(ctx context.Context, referralID uuid.UUID, creditErr string) error
}
