package ingest

import (
	apphttp "leadranker_backend/internal/http"
	"leadranker_backend/platform/logger"
	"leadranker_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the ingest bounded context module implementing http.Module.
type Module struct {
	repo    *Repository
	handler *Handler
	log     *logger.Logger
}

// NewModule creates and initializes the ingest module. The gate is the
// scoring service.
func NewModule(pool *pgxpool.Pool, gate Gate, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	return &Module{
		repo:    repo,
		handler: NewHandler(repo, gate, val),
		log:     log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "ingest"
}

// RegisterRoutes mounts ingest routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public capture endpoint, authenticated by API key.
	ctx.V1.POST("/ingest/leads", APIKeyAuthMiddleware(m.repo, m.log), m.handler.IngestLead)

	ctx.Protected.POST("/ingest/keys", m.handler.CreateKey)
	ctx.Protected.GET("/ingest/keys", m.handler.ListKeys)
	ctx.Protected.DELETE("/ingest/keys/:id", m.handler.RevokeKey)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
