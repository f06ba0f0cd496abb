// Package service implements the referral program: submission, checkout
// qualification, and the delayed reward sweep.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"leadranker_backend/internal/events"
	"leadranker_backend/internal/referrals/repository"
	tenantrepo "leadranker_backend/internal/tenants/repository"
	"leadranker_backend/platform/apperr"
	"leadranker_backend/platform/logger"
)

const (
	// maxOutstandingReferrals caps pending invites per referrer.
	maxOutstandingReferrals = 20
	// rewardAmountCents is the referrer credit for one qualified referral.
	rewardAmountCents int64 = 500
	// qualificationPeriod is how long a referred tenant must stay paying
	// before the referrer's credit is granted.
	qualificationPeriod = 30 * 24 * time.Hour
	// rewardConcurrency bounds parallel credit attempts in one sweep.
	rewardConcurrency = 4
)

// Ledger is the slice of the tenant ledger the referral engine needs.
type Ledger interface {
	GetTenant(ctx context.Context, tenantID uuid.UUID) (tenantrepo.Tenant, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (tenantrepo.Tenant, error)
	CreditAccount(ctx context.Context, tenantID uuid.UUID, amountCents int64, reason string) (string, error)
}

// Stats aggregates a referrer's program progress.
type Stats struct {
	Total       int   `json:"total"`
	Pending     int   `json:"pending"`
	Qualified   int   `json:"qualified"`
	Rewarded    int   `json:"rewarded"`
	EarnedCents int64 `json:"earnedCents"`
}

// Service implements the referral engine.
type Service struct {
	repo     repository.Repository
	ledger   Ledger
	eventBus events.Bus
	log      *logger.Logger

	// now is injectable for maturity-window tests.
	now func() time.Time
}

// New creates a new referrals service.
func New(repo repository.Repository, ledger Ledger, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		ledger:   ledger,
		eventBus: eventBus,
		log:      log,
		now:      time.Now,
	}
}

// Submit creates a pending referral for the caller's tenant and requests an
// invite email. Self-referrals, duplicates, and referrers at the
// outstanding-invite cap are rejected.
func (s *Service) Submit(ctx context.Context, referrerTenantID uuid.UUID, refereeEmail string) (repository.Referral, error) {
	refereeEmail = strings.TrimSpace(refereeEmail)

	tenant, err := s.ledger.GetTenant(ctx, referrerTenantID)
	if err != nil {
		return repository.Referral{}, err
	}

	if strings.EqualFold(tenant.ContactEmail, refereeEmail) {
		return repository.Referral{}, apperr.Validation("you cannot refer yourself")
	}

	outstanding, err := s.repo.CountOutstanding(ctx, referrerTenantID)
	if err != nil {
		return repository.Referral{}, err
	}
	if outstanding >= maxOutstandingReferrals {
		return repository.Referral{}, apperr.Conflict("too many outstanding referrals, wait for some to qualify")
	}

	referral, err := s.repo.Insert(ctx, referrerTenantID, tenant.ContactEmail, refereeEmail)
	if err != nil {
		return repository.Referral{}, err
	}

	s.eventBus.Publish(ctx, events.ReferralInviteRequested{
		BaseEvent:     events.NewBaseEvent(),
		ReferralID:    referral.ID,
		TenantID:      referrerTenantID,
		ReferrerName:  tenant.Name,
		ReferrerEmail: tenant.ContactEmail,
		RefereeEmail:  refereeEmail,
	})

	return referral, nil
}

// List returns the referrer's referrals with aggregate stats.
func (s *Service) List(ctx context.Context, referrerTenantID uuid.UUID) ([]repository.Referral, Stats, error) {
	referrals, err := s.repo.ListByReferrer(ctx, referrerTenantID)
	if err != nil {
		return nil, Stats{}, err
	}

	var stats Stats
	stats.Total = len(referrals)
	for _, ref := range referrals {
		switch ref.Status {
		case repository.StatusPending:
			stats.Pending++
		case repository.StatusQualified:
			stats.Qualified++
		case repository.StatusRewarded:
			stats.Rewarded++
			if ref.StripeCreditID != nil {
				stats.EarnedCents += rewardAmountCents
			}
		}
	}
	return referrals, stats, nil
}

// Qualify stamps the oldest pending referral for the email as qualified.
// Called from the checkout-completed webhook; a buyer nobody referred is a
// silent no-op, not an error.
func (s *Service) Qualify(ctx context.Context, refereeEmail string, refereeTenantID uuid.UUID) error {
	if refereeEmail == "" {
		return nil
	}

	referral, found, err := s.repo.QualifyFirstPending(ctx, refereeEmail, refereeTenantID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	s.log.Info("referral qualified",
		"referral_id", referral.ID.String(),
		"referrer_tenant_id", referral.ReferrerTenantID.String())
	return nil
}

// MaybeReward sweeps matured referrals for a paying customer. Each referral
// is rewarded independently: the conditional claim makes the credit attempt
// at-most-once, and one failed credit never blocks the rest of the sweep.
func (s *Service) MaybeReward(ctx context.Context, stripeCustomerID string) error {
	tenant, err := s.ledger.GetByStripeCustomerID(ctx, stripeCustomerID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}

	cutoff := s.now().Add(-qualificationPeriod)
	referrals, err := s.repo.ListRewardable(ctx, tenant.ID, cutoff)
	if err != nil {
		return err
	}
	if len(referrals) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rewardConcurrency)
	for _, referral := range referrals {
		g.Go(func() error {
			s.rewardOne(gctx, referral)
			return nil
		})
	}
	return g.Wait()
}

// rewardOne claims the referral and makes the single credit attempt. A
// failure after the claim is recorded on the row and left for manual
// reconciliation; retrying would risk a double credit.
func (s *Service) rewardOne(ctx context.Context, referral repository.Referral) {
	claimed, err := s.repo.ClaimReward(ctx, referral.ID)
	if err != nil {
		s.log.Error("failed to claim referral reward",
			"referral_id", referral.ID.String(), "error", err)
		return
	}
	if !claimed {
		return
	}

	creditID, err := s.ledger.CreditAccount(ctx, referral.ReferrerTenantID,
		rewardAmountCents, "Referral reward: "+referral.RefereeEmail)
	if err != nil {
		s.log.Error("referral credit failed",
			"referral_id", referral.ID.String(), "error", err)
		if recordErr := s.repo.RecordCreditError(ctx, referral.ID, err.Error()); recordErr != nil {
			s.log.Error("failed to record referral credit error",
				"referral_id", referral.ID.String(), "error", recordErr)
		}
		return
	}

	if err := s.repo.RecordCredit(ctx, referral.ID, creditID); err != nil {
		s.log.Error("failed to record referral credit",
			"referral_id", referral.ID.String(), "error", err)
	}

	s.eventBus.Publish(ctx, events.ReferralRewarded{
		BaseEvent:     events.NewBaseEvent(),
		ReferralID:    referral.ID,
		TenantID:      referral.ReferrerTenantID,
		ReferrerEmail: referral.ReferrerEmail,
		RefereeEmail:  referral.RefereeEmail,
		AmountUSD:     rewardAmountCents / 100,
	})
}
