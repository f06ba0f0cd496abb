package email

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface using a direct SMTP connection via go-mail.
// It renders the same HTML templates as BrevoSender but delivers via the operator's own SMTP server.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string, attachments ...Attachment) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	for _, att := range attachments {
		msg.AttachReader(att.FileName, bytes.NewReader(att.Content))
	}

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendHotLeadAlert(ctx context.Context, toEmail string, alert HotLeadAlert) error {
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
	return s.send(ctx, toEmail, fmt.Sprintf(subjectHotLeadFmt, alert.Score), content)
}

func (s *SMTPSender) SendReferralInviteEmail(ctx context.Context, toEmail, referrerName, signupURL string, qrPNG []byte) error {
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
	return s.send(ctx, toEmail, fmt.Sprintf(subjectReferralInviteFmt, referrerName), content, attachments...)
}

func (s *SMTPSender) SendReferralRewardEmail(ctx context.Context, toEmail, refereeEmail string, amountUSD int64) error {
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
	return s.send(ctx, toEmail, subjectReferralReward, content)
}

func (s *SMTPSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return s.send(ctx, toEmail, subject, htmlContent)
}
