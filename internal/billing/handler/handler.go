// Package handler exposes the billing webhook and checkout endpoints.
package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"leadranker_backend/internal/billing/service"
	"leadranker_backend/internal/billing/transport"
	"leadranker_backend/platform/httpkit"
	"leadranker_backend/platform/logger"
	"leadranker_backend/platform/validator"
)

// Stripe webhook payloads are small; anything larger is hostile.
const maxWebhookPayloadSize = 64 * 1024

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles billing HTTP requests.
type Handler struct {
	webhooks *service.WebhookService
	checkout *service.CheckoutService
	val      *validator.Validator
	log      *logger.Logger
}

// New creates a new billing handler.
func New(webhooks *service.WebhookService, checkout *service.CheckoutService, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{webhooks: webhooks, checkout: checkout, val: val, log: log}
}

// HandleWebhook receives payment provider events. Unauthenticated: the
// signature in the Stripe-Signature header is the credential.
// POST /api/v1/billing/webhook
func (h *Handler) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, transport.WebhookResponse{Message: "failed to read request body"})
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		c.JSON(http.StatusRequestEntityTooLarge, transport.WebhookResponse{Message: "payload too large"})
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		h.log.SecurityEvent("webhook_missing_signature", "no Stripe-Signature header", c.ClientIP())
		c.JSON(http.StatusBadRequest, transport.WebhookResponse{Message: "missing signature"})
		return
	}

	result, err := h.webhooks.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		if errors.Is(err, service.ErrBadSignature) {
			h.log.SecurityEvent("webhook_bad_signature", err.Error(), c.ClientIP())
			c.JSON(http.StatusBadRequest, transport.WebhookResponse{Message: "signature verification failed"})
			return
		}
		// Unexpected transport-level failure; let the provider retry.
		c.JSON(http.StatusInternalServerError, transport.WebhookResponse{Message: "processing failed"})
		return
	}

	c.JSON(http.StatusOK, transport.WebhookResponse{
		Received:  true,
		EventID:   result.EventID,
		EventType: result.EventType,
		Message:   result.Message,
	})
}

// CreateCheckout starts a subscription checkout for the caller's tenant.
// POST /api/v1/billing/checkout
func (h *Handler) CreateCheckout(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	sess, err := h.checkout.CreateCheckout(c.Request.Context(), identity.TenantID(), req.Plan)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, sess)
}

// VerifySession reports the outcome of a checkout session after redirect.
// GET /api/v1/billing/verify-session?session_id=...
func (h *Handler) VerifySession(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	sessionID := c.Query("session_id")
	if sessionID == "" {
		httpkit.Error(c, http.StatusBadRequest, "session_id is required", nil)
		return
	}

	sess, err := h.checkout.VerifySession(c.Request.Context(), identity.TenantID(), sessionID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, sess)
}
