// Package service implements the scoring gate: quota check, classification,
// and the atomic persist-and-meter step.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"leadranker_backend/internal/events"
	"leadranker_backend/internal/scoring/agent"
	"leadranker_backend/internal/scoring/repository"
	tenantrepo "leadranker_backend/internal/tenants/repository"
	tenantservice "leadranker_backend/internal/tenants/service"
	"leadranker_backend/platform/apperr"
	"leadranker_backend/platform/logger"
)

// Ledger is the slice of the tenant ledger the scoring gate needs.
type Ledger interface {
	GetStatus(ctx context.Context, tenantID uuid.UUID) (tenantservice.Status, error)
	ConsumeQuota(ctx context.Context, q tenantrepo.Querier, tenantID uuid.UUID, plan string) (int, error)
}

// Classifier produces a verdict for an inbound message. Implementations
// never fail: errors degrade to a fallback verdict internally.
type Classifier interface {
	Classify(ctx context.Context, input agent.ClassifyInput) agent.Verdict
}

// ScoreRequest is one message submitted for scoring.
type ScoreRequest struct {
	TenantID       uuid.UUID
	Message        string
	SubmitterEmail string
	SubmitterPhone string
	Source         string
	Channel        string
}

// BillingSnapshot is the tenant's quota position after the scoring run.
type BillingSnapshot struct {
	Plan      string `json:"plan"`
	Limit     int    `json:"limit"`
	Usage     int    `json:"usage"`
	Remaining int    `json:"remaining"`
}

// ScoreResult is the outcome of one scoring run.
type ScoreResult struct {
	Lead    repository.Lead
	Verdict agent.Verdict
	Billing BillingSnapshot
}

// Service is the scoring gate.
type Service struct {
	repo       repository.Repository
	ledger     Ledger
	classifier Classifier
	eventBus   events.Bus
	log        *logger.Logger
}

// New creates the scoring gate service.
func New(repo repository.Repository, ledger Ledger, classifier Classifier, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		ledger:     ledger,
		classifier: classifier,
		eventBus:   eventBus,
		log:        log,
	}
}

// ScoreLead runs the full pipeline for one inbound message:
//
//  1. Reject up front when the tenant's quota is exhausted (no classify,
//     no persist, no increment).
//  2. Classify. The classifier degrades internally, so this step never
//     blocks the pipeline.
//  3. Persist the lead and consume one quota unit in a single transaction.
//     A concurrent racer that took the last unit surfaces here as a
//     rollback and a quota rejection.
//  4. Publish events outside the transaction; a HOT lead additionally
//     raises the alert event.
func (s *Service) ScoreLead(ctx context.Context, req ScoreRequest) (ScoreResult, error) {
	status, err := s.ledger.GetStatus(ctx, req.TenantID)
	if err != nil {
		return ScoreResult{}, err
	}

	if status.Blocked {
		s.log.QuotaBlocked(req.TenantID.String(), status.Usage, status.Limit)
		return ScoreResult{}, quotaExceededError(status.Plan, status.Usage, status.Limit)
	}

	verdict := s.classifier.Classify(ctx, agent.ClassifyInput{
		Message:  req.Message,
		Industry: status.Industry,
	})
	bucket := agent.BucketFor(verdict.IsLead, verdict.Score)

	var lead repository.Lead
	var usageAfter int
	err = s.repo.RunInTx(ctx, func(q repository.Querier) error {
		inserted, insertErr := s.repo.Insert(ctx, q, repository.InsertParams{
			TenantID:       req.TenantID,
			SubmitterEmail: req.SubmitterEmail,
			SubmitterPhone: req.SubmitterPhone,
			Message:        req.Message,
			Source:         req.Source,
			Channel:        req.Channel,
			Score:          verdict.Score,
			Bucket:         bucket,
			Sentiment:      verdict.Sentiment,
			Recommendation: verdict.Recommendation,
			Entities:       verdict.Entities,
			ModelVersion:   verdict.ModelVersion,
		})
		if insertErr != nil {
			return insertErr
		}
		lead = inserted

		usage, quotaErr := s.ledger.ConsumeQuota(ctx, q, req.TenantID, status.Plan)
		if quotaErr != nil {
			return quotaErr
		}
		usageAfter = usage
		return nil
	})
	if err != nil {
		if errors.Is(err, tenantservice.ErrQuotaExhausted) {
			s.log.QuotaBlocked(req.TenantID.String(), status.Limit, status.Limit)
			return ScoreResult{}, quotaExceededError(status.Plan, status.Limit, status.Limit)
		}
		return ScoreResult{}, fmt.Errorf("score lead: %w", err)
	}

	s.publishScored(ctx, lead, status)

	remaining := status.Limit - usageAfter
	if remaining < 0 {
		remaining = 0
	}

	return ScoreResult{
		Lead:    lead,
		Verdict: verdict,
		Billing: BillingSnapshot{
			Plan:      status.Plan,
			Limit:     status.Limit,
			Usage:     usageAfter,
			Remaining: remaining,
		},
	}, nil
}

// GetLead returns one scored lead, scoped to the tenant.
func (s *Service) GetLead(ctx context.Context, tenantID, leadID uuid.UUID) (repository.Lead, error) {
	return s.repo.GetByID(ctx, tenantID, leadID)
}

// ListLeads returns the tenant's scoring history.
func (s *Service) ListLeads(ctx context.Context, params repository.ListParams) ([]repository.Lead, error) {
	return s.repo.List(ctx, params)
}

// BucketCounts returns the tenant's lead counts per bucket.
func (s *Service) BucketCounts(ctx context.Context, tenantID uuid.UUID) (map[string]int, error) {
	return s.repo.CountByBucket(ctx, tenantID)
}

func (s *Service) publishScored(ctx context.Context, lead repository.Lead, status tenantservice.Status) {
	s.eventBus.Publish(ctx, events.LeadScored{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		TenantID:  lead.TenantID,
		Score:     lead.Score,
		Bucket:    lead.Bucket,
		Source:    lead.Source,
	})

	if lead.Bucket == agent.BucketHot {
		s.eventBus.Publish(ctx, events.HotLeadDetected{
			BaseEvent:      events.NewBaseEvent(),
			LeadID:         lead.ID,
			TenantID:       lead.TenantID,
			TenantEmail:    status.ContactEmail,
			SubmitterEmail: lead.SubmitterEmail,
			Message:        lead.Message,
			Score:          lead.Score,
			Sentiment:      lead.Sentiment,
			Recommendation: lead.Recommendation,
		})
	}
}

func quotaExceededError(plan string, usage, limit int) *apperr.Error {
	return apperr.QuotaExceeded("monthly scoring quota exhausted").WithDetails(map[string]any{
		"plan":  plan,
		"usage": usage,
		"limit": limit,
	})
}
