// Package service implements the tenant ledger: plan limits, metered usage,
// subscription state, and account credits.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"leadranker_backend/internal/events"
	"leadranker_backend/internal/tenants/repository"
	"leadranker_backend/platform/logger"
)

// ErrQuotaExhausted is re-exported so callers can branch on quota exhaustion
// without importing the repository package.
var ErrQuotaExhausted = repository.ErrQuotaExhausted

// CreditIssuer grants a dollar credit on the payment provider account.
// The billing module provides the Stripe-backed implementation.
type CreditIssuer interface {
	IssueCredit(ctx context.Context, stripeCustomerID string, amountCents int64, description string) (string, error)
}

// UsageAlert is a threshold advisory included in the usage status response.
type UsageAlert struct {
	Level   string `json:"level"` // info | warning | critical
	Message string `json:"message"`
}

// Status is the tenant's current quota position.
type Status struct {
	TenantID           uuid.UUID   `json:"tenantId"`
	Name               string      `json:"name"`
	Industry           string      `json:"industry"`
	Plan               string      `json:"plan"`
	SubscriptionStatus string      `json:"subscriptionStatus"`
	Limit              int         `json:"limit"`
	Usage              int         `json:"usage"`
	Remaining          int         `json:"remaining"`
	PercentUsed        float64     `json:"percentUsed"`
	Blocked            bool        `json:"blocked"`
	ContactEmail       string      `json:"contactEmail"`
	Alert              *UsageAlert `json:"alert,omitempty"`
}

// Service implements the tenant ledger operations.
type Service struct {
	repo         repository.Repository
	eventBus     events.Bus
	log          *logger.Logger
	creditIssuer CreditIssuer
	now          func() time.Time
}

// New creates the tenant ledger service.
func New(repo repository.Repository, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		eventBus: eventBus,
		log:      log,
		now:      time.Now,
	}
}

// SetCreditIssuer injects the payment provider credit port. Wired by the
// composition root after the billing module exists.
func (s *Service) SetCreditIssuer(issuer CreditIssuer) {
	s.creditIssuer = issuer
}

// GetStatus returns the tenant's quota position for the current calendar
// month. Usage recorded in an earlier month counts as zero.
func (s *Service) GetStatus(ctx context.Context, tenantID uuid.UUID) (Status, error) {
	tenant, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return Status{}, err
	}
	return s.statusFor(tenant), nil
}

// GetByStripeCustomerID resolves a tenant from its payment provider customer.
func (s *Service) GetByStripeCustomerID(ctx context.Context, customerID string) (repository.Tenant, error) {
	return s.repo.GetByStripeCustomerID(ctx, customerID)
}

// GetTenant returns the raw tenant row.
func (s *Service) GetTenant(ctx context.Context, tenantID uuid.UUID) (repository.Tenant, error) {
	return s.repo.GetByID(ctx, tenantID)
}

// ConsumeQuota increments the tenant's usage inside the caller's transaction.
// The limit is derived from the tenant's plan; callers pass the plan they
// read at the start of their unit of work. Returns the usage after the
// increment, or ErrQuotaExhausted.
func (s *Service) ConsumeQuota(ctx context.Context, q repository.Querier, tenantID uuid.UUID, plan string) (int, error) {
	limit := PlanLimit(plan)
	usage, err := s.repo.ConsumeQuota(ctx, q, tenantID, limit)
	if err != nil {
		return 0, err
	}
	return usage, nil
}

// ApplySubscriptionChange records the plan and subscription status derived
// from one payment provider event. Publishes SubscriptionChanged when the
// change was actually applied (not superseded by a newer event). The
// querier lets the webhook processor run the change inside its dedupe
// transaction; nil runs against the pool.
func (s *Service) ApplySubscriptionChange(ctx context.Context, q repository.Querier, tenantID uuid.UUID, change repository.SubscriptionChange) (repository.Tenant, bool, error) {
	if !IsKnownPlan(change.Plan) {
		change.Plan = PlanTrial
	}

	tenant, applied, err := s.repo.ApplySubscriptionChange(ctx, q, tenantID, change)
	if err != nil {
		return repository.Tenant{}, false, err
	}

	if applied {
		s.eventBus.Publish(ctx, events.SubscriptionChanged{
			BaseEvent: events.NewBaseEvent(),
			TenantID:  tenant.ID,
			Plan:      tenant.Plan,
			Status:    tenant.SubscriptionStatus,
		})
	} else {
		s.log.WithContext(ctx).Info("subscription change skipped by ordering guard",
			"tenant_id", tenantID.String(), "event_at", change.EventAt)
	}

	return tenant, applied, nil
}

// SetStripeCustomerID records the provider customer for a tenant.
func (s *Service) SetStripeCustomerID(ctx context.Context, tenantID uuid.UUID, customerID string) error {
	return s.repo.SetStripeCustomerID(ctx, tenantID, customerID)
}

// CreditAccount grants a dollar credit on the tenant's payment provider
// account. The tenant must have a provider customer; the caller owns
// at-most-once semantics (this method makes exactly one attempt).
func (s *Service) CreditAccount(ctx context.Context, tenantID uuid.UUID, amountCents int64, reason string) (string, error) {
	if s.creditIssuer == nil {
		return "", fmt.Errorf("credit account: no credit issuer configured")
	}

	tenant, err := s.repo.GetByID(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if tenant.StripeCustomerID == nil || *tenant.StripeCustomerID == "" {
		return "", fmt.Errorf("credit account: tenant %s has no payment customer", tenantID)
	}

	creditID, err := s.creditIssuer.IssueCredit(ctx, *tenant.StripeCustomerID, amountCents, reason)
	if err != nil {
		return "", fmt.Errorf("credit account: %w", err)
	}

	return creditID, nil
}

func (s *Service) statusFor(tenant repository.Tenant) Status {
	limit := PlanLimit(tenant.Plan)
	usage := s.effectiveUsage(tenant)

	remaining := limit - usage
	if remaining < 0 {
		remaining = 0
	}

	percent := 0.0
	if limit > 0 {
		percent = float64(usage) / float64(limit) * 100
	}

	status := Status{
		TenantID:           tenant.ID,
		Name:               tenant.Name,
		Industry:           tenant.Industry,
		Plan:               tenant.Plan,
		SubscriptionStatus: tenant.SubscriptionStatus,
		Limit:              limit,
		Usage:              usage,
		Remaining:          remaining,
		PercentUsed:        percent,
		Blocked:            usage >= limit,
		ContactEmail:       tenant.ContactEmail,
	}
	status.Alert = usageAlert(status)

	return status
}

// effectiveUsage scopes the stored counter to the current calendar month.
// A usage_month from a previous month means the counter has not rolled over
// yet, which reads as zero usage.
func (s *Service) effectiveUsage(tenant repository.Tenant) int {
	now := s.now().UTC()
	month := tenant.UsageMonth.UTC()
	if month.Year() == now.Year() && month.Month() == now.Month() {
		return tenant.MonthlyUsage
	}
	return 0
}

func usageAlert(status Status) *UsageAlert {
	switch {
	case status.Blocked:
		return &UsageAlert{
			Level:   "critical",
			Message: fmt.Sprintf("Monthly limit of %d scored leads reached. Upgrade to keep scoring.", status.Limit),
		}
	case status.PercentUsed >= 90:
		return &UsageAlert{
			Level:   "warning",
			Message: fmt.Sprintf("%d of %d scored leads used this month.", status.Usage, status.Limit),
		}
	case status.PercentUsed >= 75:
		return &UsageAlert{
			Level:   "info",
			Message: fmt.Sprintf("%d of %d scored leads used this month.", status.Usage, status.Limit),
		}
	case status.Plan == PlanTrial && status.PercentUsed >= 50:
		return &UsageAlert{
			Level:   "info",
			Message: "Over half the trial allowance used. Pick a plan to raise the limit.",
		}
	default:
		return nil
	}
}
