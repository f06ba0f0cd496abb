package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadranker_backend/platform/apperr"
)

const leadNotFoundMessage = "lead not found"

const leadColumns = `
	id, tenant_id, submitter_email, submitter_phone, message, source, channel,
	score, bucket, sentiment, recommendation, entities, model_version, created_at`

const insertLeadQuery = `
	INSERT INTO leads (
		tenant_id, submitter_email, submitter_phone, message, source, channel,
		score, bucket, sentiment, recommendation, entities, model_version
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	RETURNING ` + leadColumns

const getLeadQuery = `
	SELECT ` + leadColumns + `
	FROM leads
	WHERE id = $1 AND tenant_id = $2`

const listLeadsQuery = `
	SELECT ` + leadColumns + `
	FROM leads
	WHERE tenant_id = $1
	  AND ($2 = '' OR bucket = $2)
	ORDER BY created_at DESC
	LIMIT $3 OFFSET $4`

const countByBucketQuery = `
	SELECT bucket, count(*)
	FROM leads
	WHERE tenant_id = $1
	GROUP BY bucket`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// RunInTx runs fn inside one transaction, rolling back on error or panic.
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

// Insert persists a scored lead using the provided querier (pool or tx).
func (r *Repo) Insert(ctx context.Context, q Querier, params InsertParams) (Lead, error) {
	entities, err := json.Marshal(params.Entities)
	if err != nil {
		return Lead{}, fmt.Errorf("marshal entities: %w", err)
	}

	lead, err := scanLead(q.QueryRow(ctx, insertLeadQuery,
		params.TenantID, params.SubmitterEmail, params.SubmitterPhone,
		params.Message, params.Source, params.Channel,
		params.Score, params.Bucket, params.Sentiment,
		params.Recommendation, entities, params.ModelVersion,
	))
	if err != nil {
		return Lead{}, fmt.Errorf("insert lead: %w", err)
	}

	return lead, nil
}

// GetByID retrieves one lead, scoped to the tenant.
func (r *Repo) GetByID(ctx context.Context, tenantID, leadID uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, getLeadQuery, leadID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("get lead by id: %w", err)
	}
	return lead, nil
}

// List returns the tenant's scored leads, newest first.
func (r *Repo) List(ctx context.Context, params ListParams) ([]Lead, error) {
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, listLeadsQuery, params.TenantID, params.Bucket, limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// CountByBucket returns the tenant's lead counts per bucket.
func (r *Repo) CountByBucket(ctx context.Context, tenantID uuid.UUID) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, countByBucketQuery, tenantID)
	if err != nil {
		return nil, fmt.Errorf("count leads by bucket: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var bucket string
		var count int
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, fmt.Errorf("scan bucket count: %w", err)
		}
		counts[bucket] = count
	}
	return counts, rows.Err()
}

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	var entities []byte

	err := row.Scan(
		&lead.ID, &lead.TenantID, &lead.SubmitterEmail, &lead.SubmitterPhone,
		&lead.Message, &lead.Source, &lead.Channel, &lead.Score, &lead.Bucket,
		&lead.Sentiment, &lead.Recommendation, &entities, &lead.ModelVersion,
		&lead.CreatedAt,
	)
	if err != nil {
		return Lead{}, err
	}

	if len(entities) > 0 {
		if err := json.Unmarshal(entities, &lead.Entities); err != nil {
			lead.Entities = map[string]any{}
		}
	}

	return lead, nil
}
