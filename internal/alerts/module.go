// Package alerts turns domain events into outbound notifications.
// It subscribes to the event bus and inverts the dependency: scoring and
// referral code never touches email providers or templates. Delivery is
// best-effort, single attempt; every failure is logged and absorbed so an
// alert can never fail the request that raised it.
package alerts

import (
	"context"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"leadranker_backend/internal/email"
	"leadranker_backend/internal/events"
	"leadranker_backend/platform/config"
	"leadranker_backend/platform/logger"
)

const qrCodeSize = 256

// Module is the alert dispatcher.
type Module struct {
	sender email.Sender
	cfg    config.NotificationConfig
	log    *logger.Logger
}

// NewModule creates the alert dispatcher.
func NewModule(sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{sender: sender, cfg: cfg, log: log}
}

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.HotLeadDetected{}.EventName(), m)
	bus.Subscribe(events.ReferralInviteRequested{}.EventName(), m)
	bus.Subscribe(events.ReferralRewarded{}.EventName(), m)
}

// Handle dispatches one event. Errors are returned for the bus's logging
// but carry no retry semantics.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.HotLeadDetected:
		return m.handleHotLeadDetected(ctx, e)
	case events.ReferralInviteRequested:
		return m.handleReferralInviteRequested(ctx, e)
	case events.ReferralRewarded:
		return m.handleReferralRewarded(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleHotLeadDetected(ctx context.Context, e events.HotLeadDetected) error {
	if e.TenantEmail == "" {
		m.log.Warn("hot lead alert skipped, tenant has no contact email",
			"lead_id", e.LeadID.String())
		return nil
	}

	err := m.sender.SendHotLeadAlert(ctx, e.TenantEmail, email.HotLeadAlert{
		SubmitterEmail: e.SubmitterEmail,
		Message:        e.Message,
		Score:          e.Score,
		Sentiment:      e.Sentiment,
		Recommendation: e.Recommendation,
	})
	if err != nil {
		m.log.Error("failed to send hot lead alert",
			"lead_id", e.LeadID.String(), "error", err)
	}
	return nil
}

func (m *Module) handleReferralInviteRequested(ctx context.Context, e events.ReferralInviteRequested) error {
	signupURL := fmt.Sprintf("%s/signup?ref=%s", m.cfg.GetAppBaseURL(), e.ReferralID)

	// The invite also carries the signup link as a scannable QR code. A
	// failed encode downgrades to a link-only email.
	qrPNG, err := qrcode.Encode(signupURL, qrcode.Medium, qrCodeSize)
	if err != nil {
		m.log.Error("failed to encode referral QR code",
			"referral_id", e.ReferralID.String(), "error", err)
		qrPNG = nil
	}

	if err := m.sender.SendReferralInviteEmail(ctx, e.RefereeEmail, e.ReferrerName, signupURL, qrPNG); err != nil {
		m.log.Error("failed to send referral invite",
			"referral_id", e.ReferralID.String(), "error", err)
	}
	return nil
}

func (m *Module) handleReferralRewarded(ctx context.Context, e events.ReferralRewarded) error {
	if e.ReferrerEmail == "" {
		return nil
	}

	if err := m.sender.SendReferralRewardEmail(ctx, e.ReferrerEmail, e.RefereeEmail, e.AmountUSD); err != nil {
		m.log.Error("failed to send referral reward notice",
			"referral_id", e.ReferralID.String(), "error", err)
	}
	return nil
}
