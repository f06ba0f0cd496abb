package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"leadranker_backend/platform/config"
)

// Attachment represents a file attachment for an email.
type Attachment struct {
	Content  []byte // raw file bytes (will be base64-encoded for Brevo)
	FileName string // e.g. "referral-qr.png"
	MIMEType string // e.g. "image/png"
}

type Sender interface {
	SendHotLeadAlert(ctx context.Context, toEmail string, alert HotLeadAlert) error
	SendReferralInviteEmail(ctx context.Context, toEmail, referrerName, signupURL string, qrPNG []byte) error
	SendReferralRewardEmail(ctx context.Context, toEmail, refereeEmail string, amountUSD int64) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// HotLeadAlert carries the lead summary shown in the alert email.
type HotLeadAlert struct {
	SubmitterEmail string
	Message        string
	Score          int
	Sentiment      string
	Recommendation string
}

type NoopSender struct{}

func (NoopSender) SendHotLeadAlert(ctx context.Context, toEmail string, alert HotLeadAlert) error {
	return nil
}

func (NoopSender) SendReferralInviteEmail(ctx context.Context, toEmail, referrerName, signupURL string, qrPNG []byte) error {
	return nil
}

func (NoopSender) SendReferralRewardEmail(ctx context.Context, toEmail, refereeEmail string, amountUSD int64) error {
	return nil
}

func (NoopSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}

type BrevoSender struct {
	apiKey    string
	fromName  string
	fromEmail string
	client    *http.Client
}

type brevoAttachment struct {
	Content string `json:"content"` // base64-encoded file content
	Name    string `json:"name"`
}

type brevoEmailRequest struct {
	Sender struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"sender"`
	To []struct {
		Email string `json:"email"`
	} `json:"to"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"htmlContent"`
	Attachment  []brevoAttachment `json:"attachment,omitempty"`
}

// NewSender picks the configured transport: disabled installs go to the
// no-op sender, "smtp" uses the direct SMTP sender, everything else Brevo.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	if cfg.GetEmailProvider() == "smtp" {
		return NewSMTPSender(
			cfg.GetSMTPHost(), cfg.GetSMTPPort(),
			cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(), cfg.GetEmailFromName(),
		), nil
	}

	client := &http.Client{Timeout: 10 * time.Second}
	return &BrevoSender{
		apiKey:    cfg.GetBrevoAPIKey(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
		client:    client,
	}, nil
}

func (b *BrevoSender) SendHotLeadAlert(ctx context.Context, toEmail string, alert HotLeadAlert) error {
	content, err := renderEmailTemplate("hot_lead.html", hotLeadEmailData{
		baseEmailData: baseEmailData{
			Title:   "Hot lead detected",
			Heading: "You have a hot lead",
		},
		SubmitterEmail: alert.SubmitterEmail,
		Message:        alert.Message,
		Score:          alert.Score,
		Sentiment:      alert.Sentiment,
		Recommendation: alert.Recommendation,
	})
	if err != nil {
		return err
	}
	return b.send(ctx, toEmail, fmt.Sprintf(subjectHotLeadFmt, alert.Score), content)
}

func (b *BrevoSender) SendReferralInviteEmail(ctx context.Context, toEmail, referrerName, signupURL string, qrPNG []byte) error {
	content, err := renderEmailTemplate("referral_invite.html", referralInviteEmailData{
		baseEmailData: baseEmailData{
			Title:    "You have been invited",
			Heading:  "You have been invited",
			CTALabel: "Create your account",
			CTAURL:   signupURL,
		},
		ReferrerName: referrerName,
	})
	if err != nil {
		return err
	}

	var attachments []Attachment
	if len(qrPNG) > 0 {
		attachments = append(attachments, Attachment{
			Content:  qrPNG,
			FileName: "signup-qr.png",
			MIMEType: "image/png",
		})
	}
	return b.sendWithAttachments(ctx, toEmail, fmt.Sprintf(subjectReferralInviteFmt, referrerName), content, attachments...)
}

func (b *BrevoSender) SendReferralRewardEmail(ctx context.Context, toEmail, refereeEmail string, amountUSD int64) error {
	content, err := renderEmailTemplate("referral_reward.html", referralRewardEmailData{
		baseEmailData: baseEmailData{
			Title:   "Referral reward granted",
			Heading: "Your referral credit has landed",
		},
		RefereeEmail:    refereeEmail,
		AmountFormatted: formatCurrencyUSD(amountUSD * 100),
	})
	if err != nil {
		return err
	}
	return b.send(ctx, toEmail, subjectReferralReward, content)
}

func (b *BrevoSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return b.send(ctx, toEmail, subject, htmlContent)
}

func (b *BrevoSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	return b.sendWithAttachments(ctx, toEmail, subject, htmlContent)
}

func (b *BrevoSender) sendWithAttachments(ctx context.Context, toEmail, subject, htmlContent string, attachments ...Attachment) error {
	payload := brevoEmailRequest{
		Subject:     subject,
		HTMLContent: htmlContent,
	}
	payload.Sender.Name = b.fromName
	payload.Sender.Email = b.fromEmail
	payload.To = []struct {
		Email string `json:"email"`
	}{{Email: toEmail}}

	for _, att := range attachments {
		payload.Attachment = append(payload.Attachment, brevoAttachment{
			Content: base64.StdEncoding.EncodeToString(att.Content),
			Name:    att.FileName,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.brevo.com/v3/smtp/email", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", b.apiKey)
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("brevo send failed: status %d: %s", resp.StatusCode, string(data))
	}

	return nil
}
