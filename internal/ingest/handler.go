package ingest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	scoringservice "leadranker_backend/internal/scoring/service"
	scoringtransport "leadranker_backend/internal/scoring/transport"
	"leadranker_backend/platform/httpkit"
	"leadranker_backend/platform/phone"
	"leadranker_backend/platform/validator"
)

// Gate is the slice of the scoring pipeline the ingest endpoints need.
type Gate interface {
	ScoreLead(ctx context.Context, req scoringservice.ScoreRequest) (scoringservice.ScoreResult, error)
}

// CreateKeyRequest names a new ingest API key.
type CreateKeyRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// APIKeyResponse is the API shape of an ingest key. The plaintext key is
// present only in the creation response.
type APIKeyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	KeyPrefix string    `json:"keyPrefix"`
	Key       string    `json:"key,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// IngestLeadRequest is an externally captured inbound message.
type IngestLeadRequest struct {
	Message        string `json:"message" validate:"required,max=5000"`
	SubmitterEmail string `json:"submitterEmail" validate:"omitempty,email"`
	SubmitterPhone string `json:"submitterPhone" validate:"omitempty,max=32"`
	Source         string `json:"source" validate:"omitempty,max=100"`
}

// Handler handles HTTP requests for lead ingestion and key management.
type Handler struct {
	repo *Repository
	gate Gate
	val  *validator.Validator
}

// NewHandler creates a new ingest handler.
func NewHandler(repo *Repository, gate Gate, val *validator.Validator) *Handler {
	return &Handler{repo: repo, gate: gate, val: val}
}

// CreateKey mints a new API key for the caller's tenant.
// POST /api/v1/ingest/keys
func (h *Handler) CreateKey(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to generate key", nil)
		return
	}

	key, err := h.repo.Create(c.Request.Context(), identity.TenantID(), req.Name, hash, prefix)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, APIKeyResponse{
		ID:        key.ID.String(),
		Name:      key.Name,
		KeyPrefix: key.KeyPrefix,
		Key:       plaintext,
		IsActive:  key.IsActive,
		CreatedAt: key.CreatedAt,
	})
}

// ListKeys returns the caller's API keys, hashes omitted.
// GET /api/v1/ingest/keys
func (h *Handler) ListKeys(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	keys, err := h.repo.ListByTenant(c.Request.Context(), identity.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		items = append(items, APIKeyResponse{
			ID:        key.ID.String(),
			Name:      key.Name,
			KeyPrefix: key.KeyPrefix,
			IsActive:  key.IsActive,
			CreatedAt: key.CreatedAt,
		})
	}
	httpkit.OK(c, gin.H{"items": items})
}

// RevokeKey deactivates an API key.
// DELETE /api/v1/ingest/keys/:id
func (h *Handler) RevokeKey(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid key ID", nil)
		return
	}

	if err := h.repo.Revoke(c.Request.Context(), keyID, identity.TenantID()); err != nil {
		httpkit.Error(c, http.StatusNotFound, "key not found", nil)
		return
	}

	httpkit.OK(c, gin.H{"revoked": true})
}

// IngestLead scores an externally captured message for the key's tenant.
// POST /api/v1/ingest/leads (X-Ingest-API-Key)
func (h *Handler) IngestLead(c *gin.Context) {
	tenantID, ok := c.Get(contextIngestTenantID)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req IngestLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	source := req.Source
	if source == "" {
		source = "ingest"
	}

	result, err := h.gate.ScoreLead(c.Request.Context(), scoringservice.ScoreRequest{
		TenantID:       tenantID.(uuid.UUID),
		Message:        req.Message,
		SubmitterEmail: req.SubmitterEmail,
		SubmitterPhone: phone.NormalizeE164(req.SubmitterPhone),
		Source:         source,
		Channel:        "webhook",
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, scoringtransport.ScoreLeadResponse{
		Lead:    scoringtransport.ToLeadResponse(result.Lead),
		Billing: result.Billing,
	})
}
