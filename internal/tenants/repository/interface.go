package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrQuotaExhausted is returned by ConsumeQuota when the conditional
// increment matched no row: the tenant is at or above its monthly limit.
var ErrQuotaExhausted = errors.New("monthly quota exhausted")

// Tenant is a row in the tenants table.
type Tenant struct {
	ID                   uuid.UUID
	Name                 string
	Industry             string
	Plan                 string
	MonthlyUsage         int
	UsageMonth           time.Time
	SubscriptionStatus   string
	StripeCustomerID     *string
	StripeSubscriptionID *string
	SubscriptionEventAt  *time.Time
	ContactEmail         string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// SubscriptionChange carries the tenant state derived from one payment
// provider event.
type SubscriptionChange struct {
	Plan                 string
	SubscriptionStatus   string
	StripeCustomerID     *string
	StripeSubscriptionID *string
	// EventAt is the provider's event timestamp. Changes are only applied
	// when it is not older than the last applied change (last writer wins
	// by provider time, not arrival time).
	EventAt time.Time
}

// Querier is the subset of pgx used by quota consumption. Both *pgxpool.Pool
// and pgx.Tx satisfy it, so the increment can join the caller's transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TenantReader provides read operations for tenants.
type TenantReader interface {
	GetByID(ctx context.Context, tenantID uuid.UUID) (Tenant, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (Tenant, error)
}

// TenantWriter provides write operations for tenants.
type TenantWriter interface {
	// ConsumeQuota atomically increments the tenant's monthly usage inside
	// the caller's transaction, rolling the counter over when the stored
	// usage month is stale. Returns the new usage, or ErrQuotaExhausted
	// when the tenant is already at the limit.
	ConsumeQuota(ctx context.Context, q Querier, tenantID uuid.UUID, limit int) (int, error)
	// ApplySubscriptionChange updates plan and subscription state, guarded
	// by the provider event timestamp. Returns the updated tenant and
	// whether the change was applied (false when an equally new or newer
	// change already landed). A nil querier runs against the pool; the
	// webhook processor passes its dedupe transaction instead.
	ApplySubscriptionChange(ctx context.Context, q Querier, tenantID uuid.UUID, change SubscriptionChange) (Tenant, bool, error)
	// SetStripeCustomerID records the provider customer for a tenant.
	SetStripeCustomerID(ctx context.Context, tenantID uuid.UUID, customerID string) error
}

// Repository combines all tenant repository operations.
type Repository interface {
	TenantReader
	TenantWriter
}
