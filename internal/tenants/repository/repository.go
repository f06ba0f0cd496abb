package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadranker_backend/platform/apperr"
)

const tenantNotFoundMessage = "tenant not found"

const tenantColumns = `
	id, name, industry, plan, monthly_usage, usage_month, subscription_status,
	stripe_customer_id, stripe_subscription_id, subscription_event_at,
	contact_email, created_at, updated_at`

// consumeQuotaQuery is the quota gate. The WHERE clause computes the
// effective usage for the current calendar month (a stale usage_month counts
// as zero) and refuses the increment at the limit. Concurrent scorers race
// on the row lock, so exactly one of N callers takes the last unit.
const consumeQuotaQuery = `
	UPDATE tenants
	SET monthly_usage = CASE
	        WHEN usage_month = date_trunc('month', now())::date THEN monthly_usage + 1
	        ELSE 1
	    END,
	    usage_month = date_trunc('month', now())::date,
	    updated_at = now()
	WHERE id = $1
	  AND (CASE
	        WHEN usage_month = date_trunc('month', now())::date THEN monthly_usage
	        ELSE 0
	    END) < $2
	RETURNING monthly_usage`

// applySubscriptionChangeQuery only matches when the stored event timestamp
// is older than the incoming one, so a delayed retry of an old event cannot
// clobber newer subscription state.
const applySubscriptionChangeQuery = `
	UPDATE tenants
	SET plan = $2,
	    subscription_status = $3,
	    stripe_customer_id = COALESCE($4, stripe_customer_id),
	    stripe_subscription_id = COALESCE($5, stripe_subscription_id),
	    subscription_event_at = $6,
	    updated_at = now()
	WHERE id = $1
	  AND (subscription_event_at IS NULL OR subscription_event_at < $6)
	RETURNING ` + tenantColumns

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new tenants repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves a tenant by its ID.
func (r *Repo) GetByID(ctx context.Context, tenantID uuid.UUID) (Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`

	tenant, err := scanTenant(r.pool.QueryRow(ctx, query, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, apperr.NotFound(tenantNotFoundMessage)
		}
		return Tenant{}, fmt.Errorf("get tenant by id: %w", err)
	}

	return tenant, nil
}

// GetByStripeCustomerID retrieves a tenant by its payment provider customer.
func (r *Repo) GetByStripeCustomerID(ctx context.Context, customerID string) (Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE stripe_customer_id = $1`

	tenant, err := scanTenant(r.pool.QueryRow(ctx, query, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, apperr.NotFound(tenantNotFoundMessage)
		}
		return Tenant{}, fmt.Errorf("get tenant by stripe customer: %w", err)
	}

	return tenant, nil
}

// ConsumeQuota performs the conditional atomic increment. Zero matched rows
// means the tenant either does not exist or is at its limit; callers that
// already loaded the tenant can treat it as exhaustion.
func (r *Repo) ConsumeQuota(ctx context.Context, q Querier, tenantID uuid.UUID, limit int) (int, error) {
	var usage int
	err := q.QueryRow(ctx, consumeQuotaQuery, tenantID, limit).Scan(&usage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrQuotaExhausted
		}
		return 0, fmt.Errorf("consume quota: %w", err)
	}

	return usage, nil
}

// ApplySubscriptionChange updates subscription state behind the event
// timestamp guard.
func (r *Repo) ApplySubscriptionChange(ctx context.Context, q Querier, tenantID uuid.UUID, change SubscriptionChange) (Tenant, bool, error) {
	if q == nil {
		q = r.pool
	}

	tenant, err := scanTenant(q.QueryRow(ctx, applySubscriptionChangeQuery,
		tenantID,
		change.Plan,
		change.SubscriptionStatus,
		change.StripeCustomerID,
		change.StripeSubscriptionID,
		change.EventAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Stale event or unknown tenant. Re-read to tell the two apart.
			current, getErr := r.GetByID(ctx, tenantID)
			if getErr != nil {
				return Tenant{}, false, getErr
			}
			return current, false, nil
		}
		return Tenant{}, false, fmt.Errorf("apply subscription change: %w", err)
	}

	return tenant, true, nil
}

// SetStripeCustomerID records the provider customer for a tenant.
func (r *Repo) SetStripeCustomerID(ctx context.Context, tenantID uuid.UUID, customerID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tenants SET stripe_customer_id = $2, updated_at = now() WHERE id = $1`,
		tenantID, customerID,
	)
	if err != nil {
		return fmt.Errorf("set stripe customer id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(tenantNotFoundMessage)
	}
	return nil
}

func scanTenant(row pgx.Row) (Tenant, error) {
	var t Tenant
	err := row.Scan(
		&t.ID, &t.Name, &t.Industry, &t.Plan, &t.MonthlyUsage, &t.UsageMonth,
		&t.SubscriptionStatus, &t.StripeCustomerID, &t.StripeSubscriptionID,
		&t.SubscriptionEventAt, &t.ContactEmail, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}
