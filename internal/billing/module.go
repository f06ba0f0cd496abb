// Package billing wires Stripe checkout, session verification and webhook
// reconciliation into the HTTP router.
package billing

import (
	"leadranker_backend/internal/billing/handler"
	"leadranker_backend/internal/billing/payments"
	"leadranker_backend/internal/billing/repository"
	"leadranker_backend/internal/billing/service"
	"leadranker_backend/internal/events"
	apphttp "leadranker_backend/internal/http"
	tenantservice "leadranker_backend/internal/tenants/service"
	"leadranker_backend/platform/config"
	"leadranker_backend/platform/logger"
	"leadranker_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the billing bounded context module implementing http.Module.
type Module struct {
	webhooks *service.WebhookService
	checkout *service.CheckoutService
	payments *payments.Client
	handler  *handler.Handler
}

// NewModule creates and initializes the billing module. The ledger is the
// tenants service; referral wiring happens afterwards via setters on the
// webhook service.
func NewModule(pool *pgxpool.Pool, ledger *tenantservice.Service, eventBus events.Bus, cfg config.StripeConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	client := payments.NewClient(cfg, log)

	webhooks := service.NewWebhookService(repo, ledger, eventBus, cfg, log)
	checkout := service.NewCheckoutService(client, ledger, ledger, log)

	return &Module{
		webhooks: webhooks,
		checkout: checkout,
		payments: client,
		handler:  handler.New(webhooks, checkout, val, log),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "billing"
}

// WebhookService exposes the webhook processor for referral setter wiring.
func (m *Module) WebhookService() *service.WebhookService {
	return m.webhooks
}

// Payments exposes the Stripe client; it doubles as the tenant credit issuer.
func (m *Module) Payments() *payments.Client {
	return m.payments
}

// RegisterRoutes mounts billing routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// The webhook authenticates with its signature, not a JWT.
	ctx.V1.POST("/billing/webhook", m.handler.HandleWebhook)

	ctx.Protected.POST("/billing/checkout", m.handler.CreateCheckout)
	ctx.Protected.GET("/billing/verify-session", m.handler.VerifySession)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
