package transport

// CreateCheckoutRequest starts a plan purchase.
type CreateCheckoutRequest struct {
	Plan string `json:"plan" validate:"required,oneof=starter team enterprise"`
}

// WebhookResponse acknowledges a payment provider delivery.
type WebhookResponse struct {
	Received  bool   `json:"received"`
	EventID   string `json:"eventId,omitempty"`
	EventType string `json:"eventType,omitempty"`
	Message   string `json:"message,omitempty"`
}
