package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Lead is a scored inbound message. Rows are append-only.
type Lead struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	SubmitterEmail string
	SubmitterPhone string
	Message        string
	Source         string
	Channel        string
	Score          int
	Bucket         string
	Sentiment      string
	Recommendation string
	Entities       map[string]any
	ModelVersion   string
	CreatedAt      time.Time
}

// InsertParams contains parameters for persisting a scored lead.
type InsertParams struct {
	TenantID       uuid.UUID
	SubmitterEmail string
	SubmitterPhone string
	Message        string
	Source         string
	Channel        string
	Score          int
	Bucket         string
	Sentiment      string
	Recommendation string
	Entities       map[string]any
	ModelVersion   string
}

// ListParams filters the tenant's lead history.
type ListParams struct {
	TenantID uuid.UUID
	Bucket   string
	Limit    int
	Offset   int
}

// Querier is the subset of pgx needed by the insert path. pgx.Tx satisfies
// it, so the insert can share a transaction with the quota increment.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LeadReader provides read operations for scored leads.
type LeadReader interface {
	GetByID(ctx context.Context, tenantID, leadID uuid.UUID) (Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, error)
	CountByBucket(ctx context.Context, tenantID uuid.UUID) (map[string]int, error)
}

// LeadWriter provides write operations for scored leads.
type LeadWriter interface {
	Insert(ctx context.Context, q Querier, params InsertParams) (Lead, error)
}

// TxRunner runs a function inside one database transaction. The function's
// error rolls the transaction back.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(q Querier) error) error
}

// Repository combines all lead repository operations.
type Repository interface {
	LeadReader
	LeadWriter
	TxRunner
}
