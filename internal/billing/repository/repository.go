// Package repository persists the webhook event ledger used for
// at-most-once processing of payment provider events.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// markProcessedQuery claims an event id. ON CONFLICT DO NOTHING makes the
// claim idempotent: the second delivery of the same event matches zero rows.
const markProcessedQuery = `
	INSERT INTO webhook_events (event_id, event_type, event_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (event_id) DO NOTHING`

// Querier is the subset of pgx used inside the webhook transaction. pgx.Tx
// satisfies it, as does *pgxpool.Pool.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository records processed webhook events.
type Repository interface {
	// RunInTx runs fn inside one transaction; fn's error rolls it back.
	RunInTx(ctx context.Context, fn func(q Querier) error) error
	// MarkProcessed claims the event id. Returns false when the event was
	// already claimed by an earlier delivery.
	MarkProcessed(ctx context.Context, q Querier, eventID, eventType string, eventAt time.Time) (bool, error)
}

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new billing repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// RunInTx runs fn inside one transaction. The event claim and the tenant
// state mutation share this transaction, so a crash between the two cannot
// strand a claimed-but-unapplied event.
func (r *Repo) RunInTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// MarkProcessed claims the event id within the provided querier.
func (r *Repo) MarkProcessed(ctx context.Context, q Querier, eventID, eventType string, eventAt time.Time) (bool, error) {
	if q == nil {
		q = r.pool
	}

	tag, err := q.Exec(ctx, markProcessedQuery, eventID, eventType, eventAt)
	if err != nil {
		return false, fmt.Errorf("mark webhook event processed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
