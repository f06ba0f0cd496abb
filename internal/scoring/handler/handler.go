// Package handler exposes the scoring pipeline over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leadranker_backend/internal/scoring/repository"
	"leadranker_backend/internal/scoring/service"
	"leadranker_backend/internal/scoring/transport"
	"leadranker_backend/platform/httpkit"
	"leadranker_backend/platform/phone"
	"leadranker_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid lead ID"
)

// Handler handles HTTP requests for lead scoring.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new scoring handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Score runs the scoring pipeline for one inbound message.
// POST /api/v1/leads/score
func (h *Handler) Score(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.ScoreLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	source := req.Source
	if source == "" {
		source = "api"
	}
	channel := req.Channel
	if channel == "" {
		channel = "form"
	}

	result, err := h.svc.ScoreLead(c.Request.Context(), service.ScoreRequest{
		TenantID:       identity.TenantID(),
		Message:        req.Message,
		SubmitterEmail: req.SubmitterEmail,
		SubmitterPhone: phone.NormalizeE164(req.SubmitterPhone),
		Source:         source,
		Channel:        channel,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, transport.ScoreLeadResponse{
		Lead:    transport.ToLeadResponse(result.Lead),
		Billing: result.Billing,
	})
}

// List returns the tenant's scored lead history.
// GET /api/v1/leads
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	leads, err := h.svc.ListLeads(c.Request.Context(), repository.ListParams{
		TenantID: identity.TenantID(),
		Bucket:   req.Bucket,
		Limit:    req.Limit,
		Offset:   req.Offset,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	counts, err := h.svc.BucketCounts(c.Request.Context(), identity.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, transport.ToLeadResponse(lead))
	}

	httpkit.OK(c, transport.LeadListResponse{Items: items, Buckets: counts})
}

// Get returns one scored lead.
// GET /api/v1/leads/:id
func (h *Handler) Get(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	lead, err := h.svc.GetLead(c.Request.Context(), identity.TenantID(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToLeadResponse(lead))
}
