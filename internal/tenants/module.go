// Package tenants provides the tenant ledger bounded context: plan limits,
// metered monthly usage, subscription state, and account credits.
package tenants

import (
	"leadranker_backend/internal/events"
	apphttp "leadranker_backend/internal/http"
	"leadranker_backend/internal/tenants/handler"
	"leadranker_backend/internal/tenants/repository"
	"leadranker_backend/internal/tenants/service"
	"leadranker_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the tenants bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the tenants module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, log)
	h := handler.New(svc)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "tenants"
}

// Service returns the ledger service for other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts tenant ledger routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/billing/usage", m.handler.GetUsage)
	ctx.V1.GET("/billing/plans", m.handler.ListPlans)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
