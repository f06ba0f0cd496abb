package service

import (
	"context"

	"github.com/google/uuid"

	"leadranker_backend/internal/billing/payments"
	tenantservice "leadranker_backend/internal/tenants/service"
	"leadranker_backend/platform/apperr"
	"leadranker_backend/platform/logger"
)

// Payments is the slice of the Stripe client the checkout flow needs.
type Payments interface {
	CreateCheckoutSession(ctx context.Context, tenantID uuid.UUID, customerEmail, plan string) (payments.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (payments.CheckoutSession, error)
}

// CustomerRecorder persists the provider customer id once checkout
// verification reveals it.
type CustomerRecorder interface {
	SetStripeCustomerID(ctx context.Context, tenantID uuid.UUID, customerID string) error
}

// CheckoutService starts and verifies plan purchases.
type CheckoutService struct {
	payments Payments
	ledger   Ledger
	recorder CustomerRecorder
	log      *logger.Logger
}

// NewCheckoutService creates the checkout flow service.
func NewCheckoutService(p Payments, ledger Ledger, recorder CustomerRecorder, log *logger.Logger) *CheckoutService {
	return &CheckoutService{payments: p, ledger: ledger, recorder: recorder, log: log}
}

// CreateCheckout starts a subscription checkout for the tenant.
func (s *CheckoutService) CreateCheckout(ctx context.Context, tenantID uuid.UUID, plan string) (payments.CheckoutSession, error) {
	if !tenantservice.IsKnownPlan(plan) || plan == tenantservice.PlanTrial {
		return payments.CheckoutSession{}, apperr.Validation("plan is not purchasable")
	}

	tenant, err := s.ledger.GetTenant(ctx, tenantID)
	if err != nil {
		return payments.CheckoutSession{}, err
	}

	return s.payments.CreateCheckoutSession(ctx, tenant.ID, tenant.ContactEmail, plan)
}

// VerifySession checks a checkout session after the browser redirect and
// records the provider customer when payment went through. State changes
// still come from the webhook; this only answers the redirect page.
func (s *CheckoutService) VerifySession(ctx context.Context, tenantID uuid.UUID, sessionID string) (payments.CheckoutSession, error) {
	sess, err := s.payments.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return payments.CheckoutSession{}, err
	}

	if sess.PaymentStatus == "paid" && sess.StripeCustomerID != "" {
		if err := s.recorder.SetStripeCustomerID(ctx, tenantID, sess.StripeCustomerID); err != nil {
			s.log.Error("failed to record stripe customer",
				"tenant_id", tenantID.String(), "error", err)
		}
	}

	return sess, nil
}
