package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	"leadranker_backend/internal/billing/repository"
	"leadranker_backend/internal/events"
	tenantrepo "leadranker_backend/internal/tenants/repository"
	tenantservice "leadranker_backend/internal/tenants/service"
	"leadranker_backend/platform/logger"
)

const testWebhookSecret = "whsec_test_secret"

// fakeRepo claims event ids in memory. Claims made inside a failed
// transaction are reverted, mirroring a rollback.
type fakeRepo struct {
	claimed map[string]bool
	inTx    []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{claimed: make(map[string]bool)}
}

func (r *fakeRepo) RunInTx(_ context.Context, fn func(q repository.Querier) error) error {
	r.inTx = nil
	if err := fn(nil); err != nil {
		for _, id := range r.inTx {
			delete(r.claimed, id)
		}
		return err
	}
	return nil
}

func (r *fakeRepo) MarkProcessed(_ context.Context, _ repository.Querier, eventID, _ string, _ time.Time) (bool, error) {
	if r.claimed[eventID] {
		return false, nil
	}
	r.claimed[eventID] = true
	r.inTx = append(r.inTx, eventID)
	return true, nil
}

type fakeLedger struct {
	tenant        tenantrepo.Tenant
	changes       []tenantrepo.SubscriptionChange
	applyErr      error
	byCustomerErr error
}

func (l *fakeLedger) GetTenant(_ context.Context, _ uuid.UUID) (tenantrepo.Tenant, error) {
	return l.tenant, nil
}

func (l *fakeLedger) GetByStripeCustomerID(_ context.Context, _ string) (tenantrepo.Tenant, error) {
	if l.byCustomerErr != nil {
		return tenantrepo.Tenant{}, l.byCustomerErr
	}
	return l.tenant, nil
}

func (l *fakeLedger) ApplySubscriptionChange(_ context.Context, _ tenantrepo.Querier, _ uuid.UUID, change tenantrepo.SubscriptionChange) (tenantrepo.Tenant, bool, error) {
	if l.applyErr != nil {
		return tenantrepo.Tenant{}, false, l.applyErr
	}
	l.changes = append(l.changes, change)
	out := l.tenant
	out.Plan = change.Plan
	out.SubscriptionStatus = change.SubscriptionStatus
	return out, true, nil
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

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.Publish(context.Background(), event)
	return nil
}

func (b *recordingBus) Subscribe(_ string, _ events.Handler) {}

type recordingQualifier struct {
	emails []string
}

func (q *recordingQualifier) Qualify(_ context.Context, refereeEmail string, _ uuid.UUID) error {
	q.emails = append(q.emails, refereeEmail)
	return nil
}

type recordingSweeper struct {
	customers []string
}

func (s *recordingSweeper) EnqueueRewardSweep(_ context.Context, stripeCustomerID string) error {
	s.customers = append(s.customers, stripeCustomerID)
	return nil
}

type stubStripeConfig struct{}

func (stubStripeConfig) GetStripeSecretKey() string     { return "sk_test" }
func (stubStripeConfig) GetStripeWebhookSecret() string { return testWebhookSecret }
func (stubStripeConfig) GetStripePriceID(string) string { return "price_test" }
func (stubStripeConfig) GetCheckoutSuccessURL() string  { return "https://app.test/success" }
func (stubStripeConfig) GetCheckoutCancelURL() string   { return "https://app.test/cancel" }
func (stubStripeConfig) IsStripeEnabled() bool          { return true }

func signPayload(t *testing.T, payload string) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return signed.Header
}

func eventJSON(id, eventType string, created int64, object string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"api_version": %q,
		"type": %q,
		"created": %d,
		"data": {"object": %s}
	}`, id, stripe.APIVersion, eventType, created, object)
}

func newTestWebhookService(repo repository.Repository, ledger Ledger, bus events.Bus) *WebhookService {
	return NewWebhookService(repo, ledger, bus, stubStripeConfig{}, logger.New("development"))
}

func TestProcessWebhookRejectsBadSignature(t *testing.T) {
	repo := newFakeRepo()
	ledger := &fakeLedger{}
	svc := newTestWebhookService(repo, ledger, &recordingBus{})

	payload := eventJSON("evt_sig", "checkout.session.completed", time.Now().Unix(), `{}`)
	_, err := svc.ProcessWebhook(context.Background(), []byte(payload), "t=1,v1=deadbeef")
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
	if len(repo.claimed) != 0 {
		t.Fatalf("unverified event must not be claimed, got %v", repo.claimed)
	}
	if len(ledger.changes) != 0 {
		t.Fatalf("unverified event must not mutate state, got %v", ledger.changes)
	}
}

func TestProcessWebhookCheckoutCompleted(t *testing.T) {
	tenantID := uuid.New()
	repo := newFakeRepo()
	ledger := &fakeLedger{tenant: tenantrepo.Tenant{ID: tenantID, ContactEmail: "owner@acme.test"}}
	qualifier := &recordingQualifier{}

	svc := newTestWebhookService(repo, ledger, &recordingBus{})
	svc.SetRefereeQualifier(qualifier)

	object := fmt.Sprintf(`{
		"id": "cs_test_1",
		"client_reference_id": %q,
		"metadata": {"plan": "team", "tenant_id": %q},
		"customer": {"id": "cus_123"},
		"subscription": {"id": "sub_123"}
	}`, tenantID, tenantID)
	payload := eventJSON("evt_checkout_1", "checkout.session.completed", time.Now().Unix(), object)

	result, err := svc.ProcessWebhook(context.Background(), []byte(payload), signPayload(t, payload))
	if err != nil {
		t.Fatalf("ProcessWebhook failed: %v", err)
	}
	if !result.Applied {
		t.Fatalf("expected event to be applied, got %+v", result)
	}

	if len(ledger.changes) != 1 {
		t.Fatalf("expected 1 subscription change, got %d", len(ledger.changes))
	}
	change := ledger.changes[0]
	if change.Plan != "team" || change.SubscriptionStatus != tenantservice.StatusActive {
		t.Errorf("unexpected change: %+v", change)
	}
	if change.StripeCustomerID == nil || *change.StripeCustomerID != "cus_123" {
		t.Errorf("expected customer id cus_123, got %v", change.StripeCustomerID)
	}

	if len(qualifier.emails) != 1 || qualifier.emails[0] != "owner@acme.test" {
		t.Errorf("expected referral qualification for owner@acme.test, got %v", qualifier.emails)
	}
}

func TestProcessWebhookDuplicateDelivery(t *testing.T) {
	tenantID := uuid.New()
	repo := newFakeRepo()
	ledger := &fakeLedger{tenant: tenantrepo.Tenant{ID: tenantID}}
	svc := newTestWebhookService(repo, ledger, &recordingBus{})

	object := fmt.Sprintf(`{"id": "cs_test_2", "client_reference_id": %q, "metadata": {"plan": "starter"}}`, tenantID)
	payload := eventJSON("evt_dup", "checkout.session.completed", time.Now().Unix(), object)
	signature := signPayload(t, payload)

	first, err := svc.ProcessWebhook(context.Background(), []byte(payload), signature)
	if err != nil || !first.Applied {
		t.Fatalf("first delivery: applied=%v err=%v", first.Applied, err)
	}

	second, err := svc.ProcessWebhook(context.Background(), []byte(payload), signature)
	if err != nil {
		t.Fatalf("duplicate delivery must still be acked, got %v", err)
	}
	if second.Applied {
		t.Fatalf("duplicate delivery must not be applied")
	}
	if len(ledger.changes) != 1 {
		t.Fatalf("duplicate delivery must not mutate state again, got %d changes", len(ledger.changes))
	}
}

func TestProcessWebhookBusinessFailureAcksAndReleasesClaim(t *testing.T) {
	repo := newFakeRepo()
	ledger := &fakeLedger{applyErr: errors.New("tenant not found")}
	svc := newTestWebhookService(repo, ledger, &recordingBus{})

	object := fmt.Sprintf(`{"id": "cs_test_3", "client_reference_id": %q, "metadata": {"plan": "starter"}}`, uuid.New())
	payload := eventJSON("evt_fail", "checkout.session.completed", time.Now().Unix(), object)

	result, err := svc.ProcessWebhook(context.Background(), []byte(payload), signPayload(t, payload))
	if err != nil {
		t.Fatalf("business failure must be acked, got %v", err)
	}
	if result.Applied {
		t.Fatalf("failed event must not report applied")
	}
	if repo.claimed["evt_fail"] {
		t.Fatalf("failed event must release its claim so a retry can land")
	}
}

func TestProcessWebhookRenewalTriggersRewardSweep(t *testing.T) {
	tenantID := uuid.New()
	customerID := "cus_cycle"
	repo := newFakeRepo()
	ledger := &fakeLedger{tenant: tenantrepo.Tenant{ID: tenantID, Plan: "team", StripeCustomerID: &customerID}}
	bus := &recordingBus{}
	sweeper := &recordingSweeper{}

	svc := newTestWebhookService(repo, ledger, bus)
	svc.SetRewardSweeper(sweeper)

	object := fmt.Sprintf(`{
		"id": "in_test_1",
		"customer": {"id": %q},
		"billing_reason": "subscription_cycle"
	}`, customerID)
	payload := eventJSON("evt_renewal", "invoice.payment_succeeded", time.Now().Unix(), object)

	result, err := svc.ProcessWebhook(context.Background(), []byte(payload), signPayload(t, payload))
	if err != nil || !result.Applied {
		t.Fatalf("renewal: applied=%v err=%v", result.Applied, err)
	}

	if len(sweeper.customers) != 1 || sweeper.customers[0] != customerID {
		t.Errorf("expected reward sweep for %s, got %v", customerID, sweeper.customers)
	}

	var renewed bool
	for _, e := range bus.events {
		if r, ok := e.(events.SubscriptionRenewed); ok {
			renewed = true
			if r.StripeCustomerID != customerID || r.TenantID != tenantID {
				t.Errorf("unexpected renewal event: %+v", r)
			}
		}
	}
	if !renewed {
		t.Errorf("expected SubscriptionRenewed on the bus, got %v", bus.events)
	}
}

func TestProcessWebhookFirstInvoiceDoesNotSweep(t *testing.T) {
	customerID := "cus_first"
	repo := newFakeRepo()
	ledger := &fakeLedger{tenant: tenantrepo.Tenant{ID: uuid.New(), Plan: "starter", StripeCustomerID: &customerID}}
	sweeper := &recordingSweeper{}

	svc := newTestWebhookService(repo, ledger, &recordingBus{})
	svc.SetRewardSweeper(sweeper)

	object := fmt.Sprintf(`{"id": "in_test_2", "customer": {"id": %q}, "billing_reason": "subscription_create"}`, customerID)
	payload := eventJSON("evt_first_invoice", "invoice.payment_succeeded", time.Now().Unix(), object)

	if _, err := svc.ProcessWebhook(context.Background(), []byte(payload), signPayload(t, payload)); err != nil {
		t.Fatalf("ProcessWebhook failed: %v", err)
	}
	if len(sweeper.customers) != 0 {
		t.Errorf("initial invoice must not trigger a reward sweep, got %v", sweeper.customers)
	}
}

func TestProcessWebhookPaymentFailedMarksPastDue(t *testing.T) {
	customerID := "cus_late"
	repo := newFakeRepo()
	ledger := &fakeLedger{tenant: tenantrepo.Tenant{ID: uuid.New(), Plan: "team", StripeCustomerID: &customerID}}
	svc := newTestWebhookService(repo, ledger, &recordingBus{})

	object := fmt.Sprintf(`{"id": "in_test_3", "customer": {"id": %q}}`, customerID)
	payload := eventJSON("evt_late", "invoice.payment_failed", time.Now().Unix(), object)

	if _, err := svc.ProcessWebhook(context.Background(), []byte(payload), signPayload(t, payload)); err != nil {
		t.Fatalf("ProcessWebhook failed: %v", err)
	}
	if len(ledger.changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(ledger.changes))
	}
	if got := ledger.changes[0].SubscriptionStatus; got != tenantservice.StatusPastDue {
		t.Errorf("status = %q, want %q", got, tenantservice.StatusPastDue)
	}
	if got := ledger.changes[0].Plan; got != "team" {
		t.Errorf("payment failure must keep the plan, got %q", got)
	}
}

func TestProcessWebhookSubscriptionDeletedDowngradesToTrial(t *testing.T) {
	customerID := "cus_gone"
	repo := newFakeRepo()
	ledger := &fakeLedger{tenant: tenantrepo.Tenant{ID: uuid.New(), Plan: "enterprise", StripeCustomerID: &customerID}}
	svc := newTestWebhookService(repo, ledger, &recordingBus{})

	object := fmt.Sprintf(`{"id": "sub_test_1", "customer": {"id": %q}}`, customerID)
	payload := eventJSON("evt_deleted", "customer.subscription.deleted", time.Now().Unix(), object)

	if _, err := svc.ProcessWebhook(context.Background(), []byte(payload), signPayload(t, payload)); err != nil {
		t.Fatalf("ProcessWebhook failed: %v", err)
	}
	if len(ledger.changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(ledger.changes))
	}
	change := ledger.changes[0]
	if change.Plan != tenantservice.PlanTrial || change.SubscriptionStatus != tenantservice.StatusCanceled {
		t.Errorf("unexpected downgrade change: %+v", change)
	}
}

func TestProcessWebhookIgnoresUnknownEventType(t *testing.T) {
	repo := newFakeRepo()
	ledger := &fakeLedger{}
	svc := newTestWebhookService(repo, ledger, &recordingBus{})

	payload := eventJSON("evt_unknown", "customer.updated", time.Now().Unix(), `{}`)
	result, err := svc.ProcessWebhook(context.Background(), []byte(payload), signPayload(t, payload))
	if err != nil {
		t.Fatalf("unknown event type must be acked, got %v", err)
	}
	if !result.Applied {
		t.Fatalf("unknown event type is claimed and acked, got %+v", result)
	}
	if len(ledger.changes) != 0 {
		t.Errorf("unknown event type must not mutate state, got %v", ledger.changes)
	}
}
