// Package service implements payment provider webhook reconciliation and
// the checkout flow.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	"leadranker_backend/internal/billing/repository"
	"leadranker_backend/internal/events"
	tenantrepo "leadranker_backend/internal/tenants/repository"
	tenantservice "leadranker_backend/internal/tenants/service"
	"leadranker_backend/platform/config"
	"leadranker_backend/platform/logger"
)

// ErrBadSignature marks a webhook that failed signature verification. The
// handler turns it into a 400; everything else gets acked with 200 so the
// provider does not retry events we cannot fix by retrying.
var ErrBadSignature = errors.New("webhook signature verification failed")

var errDuplicateEvent = errors.New("event already processed")

// Ledger is the slice of the tenant ledger the webhook processor needs.
type Ledger interface {
	GetTenant(ctx context.Context, tenantID uuid.UUID) (tenantrepo.Tenant, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (tenantrepo.Tenant, error)
	ApplySubscriptionChange(ctx context.Context, q tenantrepo.Querier, tenantID uuid.UUID, change tenantrepo.SubscriptionChange) (tenantrepo.Tenant, bool, error)
}

// RefereeQualifier marks a referral qualified when the referred email
// completes its first checkout. Implemented by the referrals service.
type RefereeQualifier interface {
	Qualify(ctx context.Context, refereeEmail string, refereeTenantID uuid.UUID) error
}

// RewardSweeper schedules a referral reward sweep for a paying customer.
// Implemented by the scheduler client; nil disables sweeps.
type RewardSweeper interface {
	EnqueueRewardSweep(ctx context.Context, stripeCustomerID string) error
}

// WebhookResult reports what one delivery did.
type WebhookResult struct {
	EventID   string `json:"eventId"`
	EventType string `json:"eventType"`
	Applied   bool   `json:"applied"`
	Message   string `json:"message,omitempty"`
}

// WebhookService reconciles Stripe events into tenant subscription state.
type WebhookService struct {
	repo      repository.Repository
	ledger    Ledger
	eventBus  events.Bus
	cfg       config.StripeConfig
	log       *logger.Logger
	qualifier RefereeQualifier
	sweeper   RewardSweeper
}

// NewWebhookService creates the webhook processor.
func NewWebhookService(repo repository.Repository, ledger Ledger, eventBus events.Bus, cfg config.StripeConfig, log *logger.Logger) *WebhookService {
	return &WebhookService{
		repo:     repo,
		ledger:   ledger,
		eventBus: eventBus,
		cfg:      cfg,
		log:      log,
	}
}

// SetRefereeQualifier injects the referral qualification port.
func (s *WebhookService) SetRefereeQualifier(q RefereeQualifier) {
	s.qualifier = q
}

// SetRewardSweeper injects the reward sweep scheduling port.
func (s *WebhookService) SetRewardSweeper(sweeper RewardSweeper) {
	s.sweeper = sweeper
}

// ProcessWebhook verifies, deduplicates, and applies one delivery.
//
// Verification is fail-closed: a bad signature never touches state. The
// event id claim and the tenant mutation share one transaction, so each
// event id is applied at most once no matter how often Stripe retries.
func (s *WebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.cfg.GetStripeWebhookSecret())
	if err != nil {
		return WebhookResult{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	result := WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
	}
	eventAt := time.Unix(event.Created, 0).UTC()

	err = s.repo.RunInTx(ctx, func(q repository.Querier) error {
		claimed, err := s.repo.MarkProcessed(ctx, q, event.ID, string(event.Type), eventAt)
		if err != nil {
			return err
		}
		if !claimed {
			return errDuplicateEvent
		}
		return s.applyEvent(ctx, q, event, eventAt)
	})

	switch {
	case err == nil:
		result.Applied = true
		s.log.WebhookEvent(event.ID, string(event.Type), true)
	case errors.Is(err, errDuplicateEvent):
		result.Message = "event already processed"
		s.log.WebhookEvent(event.ID, string(event.Type), false)
	default:
		// Business failure: ack anyway, the event id stays unclaimed so a
		// provider retry can land once the underlying problem is fixed.
		result.Message = "event received, processing deferred"
		s.log.Error("webhook processing failed",
			"event_id", event.ID, "event_type", string(event.Type), "error", err)
	}

	return result, nil
}

func (s *WebhookService) applyEvent(ctx context.Context, q repository.Querier, event stripe.Event, eventAt time.Time) error {
	switch event.Type {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(ctx, q, event, eventAt)
	case "invoice.payment_succeeded":
		return s.handleInvoicePaid(ctx, q, event, eventAt)
	case "invoice.payment_failed":
		return s.handleInvoiceFailed(ctx, q, event, eventAt)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, q, event, eventAt)
	default:
		s.log.Debug("unhandled webhook event type", "event_type", string(event.Type))
		return nil
	}
}

// handleCheckoutCompleted activates the purchased plan and, when the buyer
// was referred, qualifies the referral.
func (s *WebhookService) handleCheckoutCompleted(ctx context.Context, q repository.Querier, event stripe.Event, eventAt time.Time) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("unmarshal checkout session: %w", err)
	}

	tenantID, err := uuid.Parse(sess.ClientReferenceID)
	if err != nil {
		return fmt.Errorf("checkout session %s has no usable client reference: %w", sess.ID, err)
	}

	plan := sess.Metadata["plan"]
	change := tenantrepo.SubscriptionChange{
		Plan:               plan,
		SubscriptionStatus: tenantservice.StatusActive,
		EventAt:            eventAt,
	}
	if sess.Customer != nil && sess.Customer.ID != "" {
		change.StripeCustomerID = &sess.Customer.ID
	}
	if sess.Subscription != nil && sess.Subscription.ID != "" {
		change.StripeSubscriptionID = &sess.Subscription.ID
	}

	tenant, _, err := s.ledger.ApplySubscriptionChange(ctx, q, tenantID, change)
	if err != nil {
		return err
	}

	if s.qualifier != nil && tenant.ContactEmail != "" {
		if err := s.qualifier.Qualify(ctx, tenant.ContactEmail, tenant.ID); err != nil {
			// Qualification is best effort; the plan activation must stand.
			s.log.Error("referral qualification failed",
				"tenant_id", tenant.ID.String(), "error", err)
		}
	}

	return nil
}

// handleInvoicePaid refreshes subscription state; a recurring cycle payment
// additionally triggers the referral reward sweep for this customer.
func (s *WebhookService) handleInvoicePaid(ctx context.Context, q repository.Querier, event stripe.Event, eventAt time.Time) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("unmarshal invoice: %w", err)
	}

	customerID := invoiceCustomerID(invoice)
	if customerID == "" {
		s.log.Warn("invoice without customer, skipping", "invoice_id", invoice.ID)
		return nil
	}

	tenant, err := s.ledger.GetByStripeCustomerID(ctx, customerID)
	if err != nil {
		// The checkout webhook may not have landed yet; Stripe will retry.
		return fmt.Errorf("tenant for customer %s: %w", customerID, err)
	}

	_, _, err = s.ledger.ApplySubscriptionChange(ctx, q, tenant.ID, tenantrepo.SubscriptionChange{
		Plan:               tenant.Plan,
		SubscriptionStatus: tenantservice.StatusActive,
		EventAt:            eventAt,
	})
	if err != nil {
		return err
	}

	if invoice.BillingReason == stripe.InvoiceBillingReasonSubscriptionCycle {
		s.eventBus.Publish(ctx, events.SubscriptionRenewed{
			BaseEvent:        events.NewBaseEvent(),
			TenantID:         tenant.ID,
			StripeCustomerID: customerID,
		})
		if s.sweeper != nil {
			if err := s.sweeper.EnqueueRewardSweep(ctx, customerID); err != nil {
				s.log.Error("failed to enqueue reward sweep",
					"stripe_customer_id", customerID, "error", err)
			}
		}
	}

	return nil
}

func (s *WebhookService) handleInvoiceFailed(ctx context.Context, q repository.Querier, event stripe.Event, eventAt time.Time) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("unmarshal invoice: %w", err)
	}

	customerID := invoiceCustomerID(invoice)
	if customerID == "" {
		return nil
	}

	tenant, err := s.ledger.GetByStripeCustomerID(ctx, customerID)
	if err != nil {
		return fmt.Errorf("tenant for customer %s: %w", customerID, err)
	}

	_, _, err = s.ledger.ApplySubscriptionChange(ctx, q, tenant.ID, tenantrepo.SubscriptionChange{
		Plan:               tenant.Plan,
		SubscriptionStatus: tenantservice.StatusPastDue,
		EventAt:            eventAt,
	})
	return err
}

// handleSubscriptionDeleted drops the tenant back to the trial plan.
func (s *WebhookService) handleSubscriptionDeleted(ctx context.Context, q repository.Querier, event stripe.Event, eventAt time.Time) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("unmarshal subscription: %w", err)
	}

	if sub.Customer == nil || sub.Customer.ID == "" {
		return nil
	}

	tenant, err := s.ledger.GetByStripeCustomerID(ctx, sub.Customer.ID)
	if err != nil {
		return fmt.Errorf("tenant for customer %s: %w", sub.Customer.ID, err)
	}

	_, _, err = s.ledger.ApplySubscriptionChange(ctx, q, tenant.ID, tenantrepo.SubscriptionChange{
		Plan:               tenantservice.PlanTrial,
		SubscriptionStatus: tenantservice.StatusCanceled,
		EventAt:            eventAt,
	})
	return err
}

func invoiceCustomerID(invoice stripe.Invoice) string {
	if invoice.Customer == nil {
		return ""
	}
	return invoice.Customer.ID
}
