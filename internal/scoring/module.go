// Package scoring provides the lead scoring bounded context: the quota gate,
// the AI classifier with its deterministic fallback, and the scored lead
// history.
package scoring

import (
	"fmt"

	"leadranker_backend/internal/events"
	apphttp "leadranker_backend/internal/http"
	"leadranker_backend/internal/scoring/agent"
	"leadranker_backend/internal/scoring/handler"
	"leadranker_backend/internal/scoring/repository"
	"leadranker_backend/internal/scoring/service"
	"leadranker_backend/platform/config"
	"leadranker_backend/platform/logger"
	"leadranker_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the scoring bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the scoring module with all its dependencies.
func NewModule(pool *pgxpool.Pool, ledger service.Ledger, eventBus events.Bus, cfg config.AIConfig, val *validator.Validator, log *logger.Logger) (*Module, error) {
	classifier, err := agent.NewClassifier(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("scoring module: %w", err)
	}

	repo := repository.New(pool)
	svc := service.New(repo, ledger, classifier, eventBus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "scoring"
}

// Service returns the scoring gate service for other modules (ingest).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts scoring routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/leads/score", m.handler.Score)
	ctx.Protected.GET("/leads", m.handler.List)
	ctx.Protected.GET("/leads/:id", m.handler.Get)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
