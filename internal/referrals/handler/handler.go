// Package handler exposes the referral program over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leadranker_backend/internal/referrals/service"
	"leadranker_backend/internal/referrals/transport"
	"leadranker_backend/platform/httpkit"
	"leadranker_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for referrals.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new referrals handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Submit creates a referral invite for the caller's tenant.
// POST /api/v1/referrals
func (h *Handler) Submit(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.SubmitReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	referral, err := h.svc.Submit(c.Request.Context(), identity.TenantID(), req.RefereeEmail)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, transport.ToReferralResponse(referral))
}

// List returns the caller's referrals with aggregate stats.
// GET /api/v1/referrals
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	referrals, stats, err := h.svc.List(c.Request.Context(), identity.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.ReferralResponse, 0, len(referrals))
	for _, ref := range referrals {
		items = append(items, transport.ToReferralResponse(ref))
	}

	httpkit.OK(c, transport.ReferralListResponse{Items: items, Stats: stats})
}
