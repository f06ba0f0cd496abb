// Package referrals provides the referral program bounded context:
// invite submission, checkout qualification, and delayed reward credits.
package referrals

import (
	"leadranker_backend/internal/events"
	apphttp "leadranker_backend/internal/http"
	"leadranker_backend/internal/referrals/handler"
	"leadranker_backend/internal/referrals/repository"
	"leadranker_backend/internal/referrals/service"
	"leadranker_backend/platform/logger"
	"leadranker_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the referrals bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the referrals module. The ledger is the
// tenants service; the webhook processor picks up the qualification and
// sweep hooks from Service() in main.
func NewModule(pool *pgxpool.Pool, ledger service.Ledger, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, ledger, eventBus, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "referrals"
}

// Service returns the referral engine for webhook and scheduler wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts referral routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/referrals", m.handler.Submit)
	ctx.Protected.GET("/referrals", m.handler.List)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
