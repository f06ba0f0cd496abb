// Package handler exposes the tenant ledger over HTTP.
package handler

import (
	"leadranker_backend/internal/tenants/service"
	"leadranker_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler handles tenant ledger HTTP requests.
type Handler struct {
	service *service.Service
}

// New creates a new tenants handler.
func New(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// GetUsage returns the caller's quota position for the current month.
// GET /api/v1/billing/usage
func (h *Handler) GetUsage(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	status, err := h.service.GetStatus(c.Request.Context(), identity.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, status)
}

// ListPlans returns the plan catalog.
// GET /api/v1/billing/plans
func (h *Handler) ListPlans(c *gin.Context) {
	httpkit.OK(c, gin.H{"plans": service.Plans()})
}
