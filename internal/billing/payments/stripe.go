// Package payments wraps the Stripe API for checkout, session verification,
// and account credits.
package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	checkoutsession "github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/invoiceitem"

	"leadranker_backend/platform/apperr"
	"leadranker_backend/platform/config"
	"leadranker_backend/platform/logger"
)

// Client talks to Stripe. The stripe-go SDK keeps the API key in package
// state, so one Client per process.
type Client struct {
	cfg config.StripeConfig
	log *logger.Logger
}

// NewClient configures the Stripe SDK and returns the client.
func NewClient(cfg config.StripeConfig, log *logger.Logger) *Client {
	stripe.Key = cfg.GetStripeSecretKey()
	return &Client{cfg: cfg, log: log}
}

// Enabled reports whether a Stripe secret key is configured.
func (c *Client) Enabled() bool {
	return c.cfg.IsStripeEnabled()
}

// CheckoutSession describes a created or verified checkout session.
type CheckoutSession struct {
	SessionID        string `json:"sessionId"`
	URL              string `json:"url,omitempty"`
	PaymentStatus    string `json:"paymentStatus,omitempty"`
	Plan             string `json:"plan,omitempty"`
	StripeCustomerID string `json:"-"`
}

// CreateCheckoutSession starts a subscription checkout for the given plan.
// The tenant id travels as the client reference and in the subscription
// metadata so the completed-checkout webhook can find its way back.
func (c *Client) CreateCheckoutSession(ctx context.Context, tenantID uuid.UUID, customerEmail, plan string) (CheckoutSession, error) {
	if !c.Enabled() {
		return CheckoutSession{}, apperr.Internal("payments are not configured")
	}

	priceID := c.cfg.GetStripePriceID(plan)
	if priceID == "" {
		return CheckoutSession{}, apperr.Validation(fmt.Sprintf("plan %q is not purchasable", plan))
	}

	metadata := map[string]string{
		"tenant_id": tenantID.String(),
		"plan":      plan,
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID: stripe.String(tenantID.String()),
		SuccessURL:        stripe.String(c.cfg.GetCheckoutSuccessURL()),
		CancelURL:         stripe.String(c.cfg.GetCheckoutCancelURL()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(1),
		}},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	params.Metadata = metadata
	if customerEmail != "" {
		params.CustomerEmail = stripe.String(customerEmail)
	}
	params.Context = ctx

	sess, err := checkoutsession.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	return CheckoutSession{
		SessionID: sess.ID,
		URL:       sess.URL,
		Plan:      plan,
	}, nil
}

// GetCheckoutSession verifies a checkout session after the browser redirect.
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (CheckoutSession, error) {
	if !c.Enabled() {
		return CheckoutSession{}, apperr.Internal("payments are not configured")
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := checkoutsession.Get(sessionID, params)
	if err != nil {
		return CheckoutSession{}, apperr.NotFound("checkout session not found")
	}

	result := CheckoutSession{
		SessionID:     sess.ID,
		PaymentStatus: string(sess.PaymentStatus),
		Plan:          sess.Metadata["plan"],
	}
	if sess.Customer != nil {
		result.StripeCustomerID = sess.Customer.ID
	}
	return result, nil
}

// IssueCredit grants a negative invoice item on the customer's account. The
// amount lands as a deduction on the customer's next invoice.
func (c *Client) IssueCredit(ctx context.Context, stripeCustomerID string, amountCents int64, description string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("stripe: payments are not configured")
	}
	if amountCents <= 0 {
		return "", fmt.Errorf("stripe: credit amount must be positive, got %d", amountCents)
	}

	params := &stripe.InvoiceItemParams{
		Customer:    stripe.String(stripeCustomerID),
		Amount:      stripe.Int64(-amountCents),
		Currency:    stripe.String(string(stripe.CurrencyUSD)),
		Description: stripe.String(description),
	}
	params.Context = ctx

	item, err := invoiceitem.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: issue credit: %w", err)
	}

	c.log.Info("account credit issued",
		"stripe_customer_id", stripeCustomerID,
		"amount_cents", amountCents,
		"invoice_item_id", item.ID,
	)
	return item.ID, nil
}

// PlanForPriceID reverse-maps a Stripe price to one of our plans, for
// events that carry only the price.
func (c *Client) PlanForPriceID(priceID string, plans []string) string {
	for _, plan := range plans {
		if c.cfg.GetStripePriceID(plan) == priceID {
			return plan
		}
	}
	return ""
}
