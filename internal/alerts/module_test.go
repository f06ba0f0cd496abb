package alerts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"leadranker_backend/internal/email"
	"leadranker_backend/internal/events"
	"leadranker_backend/platform/logger"
)

type sentInvite struct {
	to        string
	referrer  string
	signupURL string
	qrPNG     []byte
}

type fakeSender struct {
	alerts  []email.HotLeadAlert
	invites []sentInvite
	rewards []string
	err     error
}

func (s *fakeSender) SendHotLeadAlert(_ context.Context, _ string, alert email.HotLeadAlert) error {
	if s.err != nil {
		return s.err
	}
	s.alerts = append(s.alerts, alert)
	return nil
}

func (s *fakeSender) SendReferralInviteEmail(_ context.Context, toEmail, referrerName, signupURL string, qrPNG []byte) error {
	if s.err != nil {
		return s.err
	}
	s.invites = append(s.invites, sentInvite{to: toEmail, referrer: referrerName, signupURL: signupURL, qrPNG: qrPNG})
	return nil
}

func (s *fakeSender) SendReferralRewardEmail(_ context.Context, toEmail, _ string, _ int64) error {
	if s.err != nil {
		return s.err
	}
	s.rewards = append(s.rewards, toEmail)
	return nil
}

func (s *fakeSender) SendCustomEmail(_ context.Context, _, _, _ string) error {
	return s.err
}

type stubNotificationConfig struct{}

func (stubNotificationConfig) GetAppBaseURL() string { return "https://app.leadranker.test" }

func newTestModule(sender email.Sender) *Module {
	return NewModule(sender, stubNotificationConfig{}, logger.New("development"))
}

func TestHandleHotLeadDetectedSendsAlert(t *testing.T) {
	sender := &fakeSender{}
	m := newTestModule(sender)

	err := m.Handle(context.Background(), events.HotLeadDetected{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      uuid.New(),
		TenantEmail: "owner@acme.test",
		Message:     "need this closed by friday",
		Score:       91,
		Sentiment:   "positive",
	})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if len(sender.alerts) != 1 || sender.alerts[0].Score != 91 {
		t.Fatalf("expected 1 alert with score 91, got %+v", sender.alerts)
	}
}

func TestHandleAbsorbsSenderFailures(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	m := newTestModule(sender)

	err := m.Handle(context.Background(), events.HotLeadDetected{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      uuid.New(),
		TenantEmail: "owner@acme.test",
	})
	if err != nil {
		t.Fatalf("delivery failure must be absorbed, got %v", err)
	}
}

func TestHandleSkipsAlertWithoutContactEmail(t *testing.T) {
	sender := &fakeSender{}
	m := newTestModule(sender)

	if err := m.Handle(context.Background(), events.HotLeadDetected{BaseEvent: events.NewBaseEvent()}); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if len(sender.alerts) != 0 {
		t.Fatalf("no alert should be sent without a destination, got %+v", sender.alerts)
	}
}

func TestHandleReferralInviteCarriesQRCode(t *testing.T) {
	sender := &fakeSender{}
	m := newTestModule(sender)

	referralID := uuid.New()
	err := m.Handle(context.Background(), events.ReferralInviteRequested{
		BaseEvent:    events.NewBaseEvent(),
		ReferralID:   referralID,
		ReferrerName: "Acme Realty",
		RefereeEmail: "friend@example.test",
	})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	if len(sender.invites) != 1 {
		t.Fatalf("expected 1 invite, got %d", len(sender.invites))
	}
	invite := sender.invites[0]
	if !strings.Contains(invite.signupURL, referralID.String()) {
		t.Errorf("signup URL should carry the referral id, got %q", invite.signupURL)
	}
	if !strings.HasPrefix(invite.signupURL, "https://app.leadranker.test/signup") {
		t.Errorf("signup URL should start from the app base URL, got %q", invite.signupURL)
	}
	if len(invite.qrPNG) == 0 {
		t.Errorf("invite should carry an encoded QR code")
	}
}

func TestHandleReferralRewardedNotifiesReferrer(t *testing.T) {
	sender := &fakeSender{}
	m := newTestModule(sender)

	err := m.Handle(context.Background(), events.ReferralRewarded{
		BaseEvent:     events.NewBaseEvent(),
		ReferralID:    uuid.New(),
		ReferrerEmail: "owner@acme.test",
		RefereeEmail:  "friend@example.test",
		AmountUSD:     5,
	})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if len(sender.rewards) != 1 || sender.rewards[0] != "owner@acme.test" {
		t.Fatalf("expected reward notice to the referrer, got %v", sender.rewards)
	}
}
