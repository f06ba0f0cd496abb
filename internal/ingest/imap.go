package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	imap "github.com/BrianLeishman/go-imap"
	"github.com/google/uuid"

	scoringservice "leadranker_backend/internal/scoring/service"
	"leadranker_backend/platform/config"
	"leadranker_backend/platform/logger"
)

const defaultPollInterval = 2 * time.Minute

// Poller drains a shared IMAP inbox and scores each unseen message for the
// tenant addressed via plus-addressing (leads+<tenant-id>@inbox).
type Poller struct {
	cfg  config.IngestConfig
	gate Gate
	log  *logger.Logger
}

// NewPoller creates an IMAP inbox poller.
func NewPoller(cfg config.IngestConfig, gate Gate, log *logger.Logger) *Poller {
	return &Poller{cfg: cfg, gate: gate, log: log}
}

// Run polls until the context is cancelled. Each cycle opens a fresh IMAP
// connection; dropped connections heal on the next tick.
func (p *Poller) Run(ctx context.Context) {
	if !p.cfg.IsEmailIngestEnabled() {
		p.log.Info("email ingest disabled, poller not starting")
		return
	}

	interval := p.cfg.GetIMAPPollInterval()
	if interval <= 0 {
		interval = defaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.log.Info("email ingest poller started", "interval", interval.String())
	for {
		if err := p.pollOnce(ctx); err != nil {
			p.log.Error("imap poll failed", "error", err)
		}

		select {
		case <-ctx.Done():
			p.log.Info("email ingest poller stopped")
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) error {
	conn, err := imap.New(
		p.cfg.GetIMAPUsername(), p.cfg.GetIMAPPassword(),
		p.cfg.GetIMAPHost(), p.cfg.GetIMAPPort(),
	)
	if err != nil {
		return fmt.Errorf("imap connect: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	if err := conn.SelectFolder("INBOX"); err != nil {
		return fmt.Errorf("imap select inbox: %w", err)
	}

	uids, err := conn.GetUIDs("UNSEEN")
	if err != nil {
		return fmt.Errorf("imap search unseen: %w", err)
	}
	if len(uids) == 0 {
		return nil
	}

	emails, err := conn.GetEmails(uids...)
	if err != nil {
		return fmt.Errorf("imap fetch: %w", err)
	}

	for uid, msg := range emails {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if msg == nil {
			continue
		}

		p.handleMessage(ctx, msg)

		// Seen means consumed. Messages we could not attribute to a tenant
		// are marked too, otherwise they would be retried forever.
		if err := conn.MarkSeen(uid); err != nil {
			p.log.Error("imap mark seen failed", "uid", uid, "error", err)
		}
	}
	return nil
}

func (p *Poller) handleMessage(ctx context.Context, msg *imap.Email) {
	tenantID, ok := tenantFromRecipients(msg.To)
	if !ok {
		p.log.Warn("inbound email without tenant address, skipping", "subject", msg.Subject)
		return
	}

	message := strings.TrimSpace(msg.Subject)
	if body := strings.TrimSpace(msg.Text); body != "" {
		if message == "" {
			message = body
		} else {
			message = message + "\n\n" + body
		}
	}
	if message == "" {
		return
	}

	submitterEmail := ""
	for addr := range msg.From {
		submitterEmail = addr
		break
	}

	_, err := p.gate.ScoreLead(ctx, scoringservice.ScoreRequest{
		TenantID:       tenantID,
		Message:        message,
		SubmitterEmail: submitterEmail,
		Source:         "inbox",
		Channel:        "email",
	})
	if err != nil {
		// Quota rejections land here too; the message stays consumed.
		p.log.Error("failed to score inbound email",
			"tenant_id", tenantID.String(), "error", err)
	}
}

// tenantFromRecipients resolves the tenant from a plus-addressed recipient
// like leads+3f6c...@inbox.example.com.
func tenantFromRecipients(recipients imap.EmailAddresses) (uuid.UUID, bool) {
	for addr := range recipients {
		id, ok := tenantFromAddress(addr)
		if ok {
			return id, true
		}
	}
	return uuid.Nil, false
}

func tenantFromAddress(addr string) (uuid.UUID, bool) {
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return uuid.Nil, false
	}
	local := addr[:at]

	plus := strings.Index(local, "+")
	if plus < 0 || plus == len(local)-1 {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(local[plus+1:])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
