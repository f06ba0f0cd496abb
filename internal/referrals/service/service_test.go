package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"leadranker_backend/internal/events"
	"leadranker_backend/internal/referrals/repository"
	tenantrepo "leadranker_backend/internal/tenants/repository"
	"leadranker_backend/platform/apperr"
	"leadranker_backend/platform/logger"
)

type fakeRepo struct {
	mu        sync.Mutex
	referrals []repository.Referral
	creditErr map[uuid.UUID]string
	credits   map[uuid.UUID]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		creditErr: make(map[uuid.UUID]string),
		credits:   make(map[uuid.UUID]string),
	}
}

func (r *fakeRepo) Insert(_ context.Context, referrerTenantID uuid.UUID, referrerEmail, refereeEmail string) (repository.Referral, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ref := range r.referrals {
		if ref.ReferrerTenantID == referrerTenantID && strings.EqualFold(ref.RefereeEmail, refereeEmail) {
			return repository.Referral{}, apperr.Conflict("this email has already been referred")
		}
	}
	ref := repository.Referral{
		ID:               uuid.New(),
		ReferrerTenantID: referrerTenantID,
		ReferrerEmail:    referrerEmail,
		RefereeEmail:     refereeEmail,
		Status:           repository.StatusPending,
		SubmittedAt:      time.Now(),
	}
	r.referrals = append(r.referrals, ref)
	return ref, nil
}

func (r *fakeRepo) CountOutstanding(_ context.Context, referrerTenantID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, ref := range r.referrals {
		if ref.ReferrerTenantID == referrerTenantID && ref.Status == repository.StatusPending {
			count++
		}
	}
	return count, nil
}

func (r *fakeRepo) ListByReferrer(_ context.Context, referrerTenantID uuid.UUID) ([]repository.Referral, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.Referral, 0)
	for _, ref := range r.referrals {
		if ref.ReferrerTenantID == referrerTenantID {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (r *fakeRepo) QualifyFirstPending(_ context.Context, refereeEmail string, refereeTenantID uuid.UUID) (repository.Referral, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, ref := range r.referrals {
		if ref.Status == repository.StatusPending && strings.EqualFold(ref.RefereeEmail, refereeEmail) {
			now := time.Now()
			r.referrals[i].Status = repository.StatusQualified
			r.referrals[i].QualifiedAt = &now
			r.referrals[i].RefereeTenantID = &refereeTenantID
			return r.referrals[i], true, nil
		}
	}
	return repository.Referral{}, false, nil
}

func (r *fakeRepo) ListRewardable(_ context.Context, refereeTenantID uuid.UUID, cutoff time.Time) ([]repository.Referral, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]repository.Referral, 0)
	for _, ref := range r.referrals {
		if ref.Status == repository.StatusQualified &&
			ref.RefereeTenantID != nil && *ref.RefereeTenantID == refereeTenantID &&
			ref.QualifiedAt != nil && !ref.QualifiedAt.After(cutoff) {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (r *fakeRepo) ClaimReward(_ context.Context, referralID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, ref := range r.referrals {
		if ref.ID == referralID && ref.Status == repository.StatusQualified {
			now := time.Now()
			r.referrals[i].Status = repository.StatusRewarded
			r.referrals[i].RewardedAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) RecordCredit(_ context.Context, referralID uuid.UUID, creditID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.credits[referralID] = creditID
	return nil
}

func (r *fakeRepo) RecordCreditError(_ context.Context, referralID uuid.UUID, creditErr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creditErr[referralID] = creditErr
	return nil
}

type fakeLedger struct {
	mu        sync.Mutex
	tenant    tenantrepo.Tenant
	creditErr error
	credited  []uuid.UUID
}

func (l *fakeLedger) GetTenant(_ context.Context, _ uuid.UUID) (tenantrepo.Tenant, error) {
	return l.tenant, nil
}

func (l *fakeLedger) GetByStripeCustomerID(_ context.Context, _ string) (tenantrepo.Tenant, error) {
	return l.tenant, nil
}

func (l *fakeLedger) CreditAccount(_ context.Context, tenantID uuid.UUID, _ int64, _ string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.creditErr != nil {
		return "", l.creditErr
	}
	l.credited = append(l.credited, tenantID)
	return "ii_" + uuid.NewString()[:8], nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(_ string, _ events.Handler) {}

func (b *recordingBus) byName(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]events.Event, 0)
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

func newTestService(repo repository.Repository, ledger Ledger, bus events.Bus) *Service {
	return New(repo, ledger, bus, logger.New("development"))
}

func TestSubmitRejectsSelfReferral(t *testing.T) {
	repo := newFakeRepo()
	ledger := &fakeLedger{tenant: tenantrepo.Tenant{ID: uuid.New(), ContactEmail: "owner@acme.test"}}
	svc := newTestService(repo, ledger, &recordingBus{})

	_, err := svc.Submit(context.Background(), ledger.tenant.ID, "Owner@ACME.test")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("self referral should be a validation error, got %v", err)
	}
	if len(repo.referrals) != 0 {
		t.Fatalf("self referral must not be persisted")
	}
}

func TestSubmitRejectsDuplicateReferee(t *testing.T) {
	repo := newFakeRepo()
	ledger := &fakeLedger{tenant: tenantrepo.Tenant{ID: uuid.New(), ContactEmail: "owner@acme.test"}}
	svc := newTestService(repo, ledger, &recordingBus{})

	if _, err := svc.Submit(context.Background(), ledger.tenant.ID, "friend@example.test"); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	_, err := svc.Submit(context.Background(), ledger.tenant.ID, "FRIEND@example.test")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("duplicate referee should be a conflict, got %v", err)
	}
}

func TestSubmitEnforcesOutstandingCap(t *testing.T) {
	repo := newFakeRepo()
	tenantID := uuid.New()
	for i := 0; i < maxOutstandingReferrals; i++ {
		repo.referrals = append(repo.referrals, repository.Referral{
			ID:               uuid.New(),
			ReferrerTenantID: tenantID,
			RefereeEmail:     uuid.NewString() + "@example.test",
			Status:           repository.StatusPending,
		})
	}
	ledger := &fakeLedger{tenant: tenantrepo.Tenant{ID: tenantID, ContactEmail: "owner@acme.test"}}
	svc := newTestService(repo, ledger, &recordingBus{})

	_, err := svc.Submit(context.Background(), tenantID, "onemore@example.test")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("cap overflow should be a conflict, got %v", err)
	}
}

func TestSubmitPublishesInviteRequest(t *testing.T) {
	repo := newFakeRepo()
	ledger := &fakeLedger{tenant: tenantrepo.Tenant{ID: uuid.New(), Name: "Acme Realty", ContactEmail: "owner@acme.test"}}
	bus := &recordingBus{}
	svc := newTestService(repo, ledger, bus)

	referral, err := svc.Submit(context.Background(), ledger.tenant.ID, "friend@example.test")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	invites := bus.byName("referrals.invite.requested")
	if len(invites) != 1 {
		t.Fatalf("expected 1 invite event, got %d", len(invites))
	}
	invite := invites[0].(events.ReferralInviteRequested)
	if invite.ReferralID != referral.ID || invite.RefereeEmail != "friend@example.test" {
		t.Errorf("unexpected invite event: %+v", invite)
	}
	if invite.ReferrerName != "Acme Realty" {
		t.Errorf("invite should carry the referrer name, got %q", invite.ReferrerName)
	}
}

func TestQualifyIsSilentWithoutPendingReferral(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeLedger{}, &recordingBus{})

	if err := svc.Qualify(context.Background(), "stranger@example.test", uuid.New()); err != nil {
		t.Fatalf("qualify without a pending referral must be a no-op, got %v", err)
	}
}

func TestQualifyStampsFirstPending(t *testing.T) {
	repo := newFakeRepo()
	ledger := &fakeLedger{tenant: tenantrepo.Tenant{ID: uuid.New(), ContactEmail: "owner@acme.test"}}
	svc := newTestService(repo, ledger, &recordingBus{})

	if _, err := svc.Submit(context.Background(), ledger.tenant.ID, "friend@example.test"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	refereeTenant := uuid.New()
	if err := svc.Qualify(context.Background(), "FRIEND@example.test", refereeTenant); err != nil {
		t.Fatalf("Qualify failed: %v", err)
	}

	ref := repo.referrals[0]
	if ref.Status != repository.StatusQualified || ref.QualifiedAt == nil {
		t.Fatalf("referral should be qualified with a timestamp, got %+v", ref)
	}
	if ref.RefereeTenantID == nil || *ref.RefereeTenantID != refereeTenant {
		t.Errorf("referee tenant should be stamped, got %v", ref.RefereeTenantID)
	}
}

func qualifiedReferral(referrerTenant, refereeTenant uuid.UUID, refereeEmail string, qualifiedAgo time.Duration) repository.Referral {
	qualifiedAt := time.Now().Add(-qualifiedAgo)
	return repository.Referral{
		ID:               uuid.New(),
		ReferrerTenantID: referrerTenant,
		ReferrerEmail:    "owner@acme.test",
		RefereeEmail:     refereeEmail,
		RefereeTenantID:  &refereeTenant,
		Status:           repository.StatusQualified,
		SubmittedAt:      qualifiedAt.Add(-24 * time.Hour),
		QualifiedAt:      &qualifiedAt,
	}
}

func TestMaybeRewardHonorsQualificationPeriod(t *testing.T) {
	referrerTenant := uuid.New()
	refereeTenant := uuid.New()
	repo := newFakeRepo()
	repo.referrals = append(repo.referrals,
		qualifiedReferral(referrerTenant, refereeTenant, "young@example.test", 10*24*time.Hour),
		qualifiedReferral(referrerTenant, refereeTenant, "mature@example.test", 31*24*time.Hour),
	)
	ledger := &fakeLedger{tenant: tenantrepo.Tenant{ID: refereeTenant}}
	bus := &recordingBus{}
	svc := newTestService(repo, ledger, bus)

	if err := svc.MaybeReward(context.Background(), "cus_referee"); err != nil {
		t.Fatalf("MaybeReward failed: %v", err)
	}

	var young, mature repository.Referral
	for _, ref := range repo.referrals {
		switch ref.RefereeEmail {
		case "young@example.test":
			young = ref
		case "mature@example.test":
			mature = ref
		}
	}
	if young.Status != repository.StatusQualified {
		t.Errorf("referral inside the qualification window must not be rewarded, got %q", young.Status)
	}
	if mature.Status != repository.StatusRewarded {
		t.Errorf("matured referral should be rewarded, got %q", mature.Status)
	}
	if len(bus.byName("referrals.reward.granted")) != 1 {
		t.Errorf("expected exactly 1 reward event")
	}
}

func TestMaybeRewardIsAtMostOncePerReferral(t *testing.T) {
	referrerTenant := uuid.New()
	refereeTenant := uuid.New()
	repo := newFakeRepo()
	repo.referrals = append(repo.referrals,
		qualifiedReferral(referrerTenant, refereeTenant, "mature@example.test", 45*24*time.Hour))
	ledger := &fakeLedger{tenant: tenantrepo.Tenant{ID: refereeTenant}}
	svc := newTestService(repo, ledger, &recordingBus{})

	for i := 0; i < 3; i++ {
		if err := svc.MaybeReward(context.Background(), "cus_referee"); err != nil {
			t.Fatalf("sweep %d failed: %v", i, err)
		}
	}

	if len(ledger.credited) != 1 {
		t.Fatalf("expected exactly 1 credit attempt, got %d", len(ledger.credited))
	}
	if ledger.credited[0] != referrerTenant {
		t.Errorf("credit should go to the referrer, got %v", ledger.credited[0])
	}
}

func TestMaybeRewardRecordsCreditFailureWithoutRetry(t *testing.T) {
	referrerTenant := uuid.New()
	refereeTenant := uuid.New()
	repo := newFakeRepo()
	repo.referrals = append(repo.referrals,
		qualifiedReferral(referrerTenant, refereeTenant, "mature@example.test", 45*24*time.Hour))
	ledger := &fakeLedger{
		tenant:    tenantrepo.Tenant{ID: refereeTenant},
		creditErr: errors.New("stripe is down"),
	}
	bus := &recordingBus{}
	svc := newTestService(repo, ledger, bus)

	if err := svc.MaybeReward(context.Background(), "cus_referee"); err != nil {
		t.Fatalf("MaybeReward failed: %v", err)
	}

	ref := repo.referrals[0]
	if ref.Status != repository.StatusRewarded {
		t.Fatalf("claim must stand even when the credit fails, got %q", ref.Status)
	}
	if repo.creditErr[ref.ID] == "" {
		t.Errorf("credit failure should be recorded on the row")
	}
	if len(bus.byName("referrals.reward.granted")) != 0 {
		t.Errorf("failed credit must not publish a reward event")
	}

	// A later sweep must not retry: the row is already claimed.
	ledger.creditErr = nil
	if err := svc.MaybeReward(context.Background(), "cus_referee"); err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if len(ledger.credited) != 0 {
		t.Fatalf("a failed credit must never be retried, got %v", ledger.credited)
	}
}
