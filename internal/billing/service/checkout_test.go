package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"leadranker_backend/internal/billing/payments"
	tenantrepo "leadranker_backend/internal/tenants/repository"
	"leadranker_backend/platform/logger"
)

type fakePayments struct {
	created  []string
	session  payments.CheckoutSession
	recorded map[uuid.UUID]string
}

func (p *fakePayments) CreateCheckoutSession(_ context.Context, _ uuid.UUID, _, plan string) (payments.CheckoutSession, error) {
	p.created = append(p.created, plan)
	return payments.CheckoutSession{SessionID: "cs_new", URL: "https://checkout.test/cs_new", Plan: plan}, nil
}

func (p *fakePayments) GetCheckoutSession(_ context.Context, _ string) (payments.CheckoutSession, error) {
	return p.session, nil
}

func (p *fakePayments) SetStripeCustomerID(_ context.Context, tenantID uuid.UUID, customerID string) error {
	if p.recorded == nil {
		p.recorded = make(map[uuid.UUID]string)
	}
	p.recorded[tenantID] = customerID
	return nil
}

func TestCreateCheckoutRejectsNonPurchasablePlans(t *testing.T) {
	p := &fakePayments{}
	svc := NewCheckoutService(p, &fakeLedger{}, p, logger.New("development"))

	for _, plan := range []string{"trial", "free", "platinum", ""} {
		if _, err := svc.CreateCheckout(context.Background(), uuid.New(), plan); err == nil {
			t.Errorf("plan %q should not be purchasable", plan)
		}
	}
	if len(p.created) != 0 {
		t.Fatalf("no checkout session should be created, got %v", p.created)
	}
}

func TestCreateCheckoutStartsSessionForPaidPlan(t *testing.T) {
	p := &fakePayments{}
	ledger := &fakeLedger{tenant: tenantrepo.Tenant{ID: uuid.New(), ContactEmail: "owner@acme.test"}}
	svc := NewCheckoutService(p, ledger, p, logger.New("development"))

	sess, err := svc.CreateCheckout(context.Background(), ledger.tenant.ID, "team")
	if err != nil {
		t.Fatalf("CreateCheckout failed: %v", err)
	}
	if sess.SessionID != "cs_new" || sess.Plan != "team" {
		t.Errorf("unexpected session: %+v", sess)
	}
}

func TestVerifySessionRecordsCustomerWhenPaid(t *testing.T) {
	tenantID := uuid.New()
	p := &fakePayments{session: payments.CheckoutSession{
		SessionID:        "cs_done",
		PaymentStatus:    "paid",
		StripeCustomerID: "cus_verified",
	}}
	svc := NewCheckoutService(p, &fakeLedger{}, p, logger.New("development"))

	sess, err := svc.VerifySession(context.Background(), tenantID, "cs_done")
	if err != nil {
		t.Fatalf("VerifySession failed: %v", err)
	}
	if sess.PaymentStatus != "paid" {
		t.Errorf("payment status = %q, want paid", sess.PaymentStatus)
	}
	if p.recorded[tenantID] != "cus_verified" {
		t.Errorf("expected customer id recorded for tenant, got %v", p.recorded)
	}
}
