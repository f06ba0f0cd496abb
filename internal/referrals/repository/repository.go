package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadranker_backend/platform/apperr"
)

const referralColumns = `
	id, referrer_tenant_id, referrer_email, referee_email, referee_tenant_id,
	status, submitted_at, qualified_at, rewarded_at, stripe_credit_id, credit_error`

const insertReferralQuery = `
	INSERT INTO referrals (referrer_tenant_id, referrer_email, referee_email)
	VALUES ($1, $2, $3)
	RETURNING ` + referralColumns

const countOutstandingQuery = `
	SELECT count(*)
	FROM referrals
	WHERE referrer_tenant_id = $1 AND status = 'pending'`

const listByReferrerQuery = `
	SELECT ` + referralColumns + `
	FROM referrals
	WHERE referrer_tenant_id = $1
	ORDER BY submitted_at DESC`

// qualifyFirstPendingQuery promotes the oldest pending referral for the
// email. The subselect pins "first matching" to submission order even when
// several referrers submitted the same address.
const qualifyFirstPendingQuery = `
	UPDATE referrals
	SET status = 'qualified', qualified_at = now(), referee_tenant_id = $2
	WHERE id = (
		SELECT id FROM referrals
		WHERE lower(referee_email) = lower($1) AND status = 'pending'
		ORDER BY submitted_at
		LIMIT 1
	)
	RETURNING ` + referralColumns

const listRewardableQuery = `
	SELECT ` + referralColumns + `
	FROM referrals
	WHERE referee_tenant_id = $1
	  AND status = 'qualified'
	  AND qualified_at <= $2
	ORDER BY qualified_at`

// claimRewardQuery is the at-most-once gate: the status predicate makes two
// concurrent sweeps race for the same row with exactly one winner.
const claimRewardQuery = `
	UPDATE referrals
	SET status = 'rewarded', rewarded_at = now()
	WHERE id = $1 AND status = 'qualified'`

const recordCreditQuery = `
	UPDATE referrals SET stripe_credit_id = $2 WHERE id = $1`

const recordCreditErrorQuery = `
	UPDATE referrals SET credit_error = $2 WHERE id = $1`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new referrals repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Insert creates a pending referral.
func (r *Repo) Insert(ctx context.Context, referrerTenantID uuid.UUID, referrerEmail, refereeEmail string) (Referral, error) {
	row := r.pool.QueryRow(ctx, insertReferralQuery, referrerTenantID, referrerEmail, refereeEmail)
	ref, err := scanReferral(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Referral{}, apperr.Conflict("this email has already been referred")
		}
		return Referral{}, fmt.Errorf("insert referral: %w", err)
	}
	return ref, nil
}

// CountOutstanding counts the referrer's pending referrals.
func (r *Repo) CountOutstanding(ctx context.Context, referrerTenantID uuid.UUID) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, countOutstandingQuery, referrerTenantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count outstanding referrals: %w", err)
	}
	return count, nil
}

// ListByReferrer returns all of the referrer's referrals, newest first.
func (r *Repo) ListByReferrer(ctx context.Context, referrerTenantID uuid.UUID) ([]Referral, error) {
	rows, err := r.pool.Query(ctx, listByReferrerQuery, referrerTenantID)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	defer rows.Close()

	referrals := make([]Referral, 0)
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, fmt.Errorf("scan referral: %w", err)
		}
		referrals = append(referrals, ref)
	}
	return referrals, rows.Err()
}

// QualifyFirstPending promotes the oldest pending referral for the email.
func (r *Repo) QualifyFirstPending(ctx context.Context, refereeEmail string, refereeTenantID uuid.UUID) (Referral, bool, error) {
	row := r.pool.QueryRow(ctx, qualifyFirstPendingQuery, refereeEmail, refereeTenantID)
	ref, err := scanReferral(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Referral{}, false, nil
		}
		return Referral{}, false, fmt.Errorf("qualify referral: %w", err)
	}
	return ref, true, nil
}

// ListRewardable returns matured qualified referrals for the referee tenant.
func (r *Repo) ListRewardable(ctx context.Context, refereeTenantID uuid.UUID, cutoff time.Time) ([]Referral, error) {
	rows, err := r.pool.Query(ctx, listRewardableQuery, refereeTenantID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list rewardable referrals: %w", err)
	}
	defer rows.Close()

	referrals := make([]Referral, 0)
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, fmt.Errorf("scan referral: %w", err)
		}
		referrals = append(referrals, ref)
	}
	return referrals, rows.Err()
}

// ClaimReward conditionally moves a referral from qualified to rewarded.
func (r *Repo) ClaimReward(ctx context.Context, referralID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, claimRewardQuery, referralID)
	if err != nil {
		return false, fmt.Errorf("claim referral reward: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RecordCredit stores the issued provider credit id.
func (r *Repo) RecordCredit(ctx context.Context, referralID uuid.UUID, creditID string) error {
	if _, err := r.pool.Exec(ctx, recordCreditQuery, referralID, creditID); err != nil {
		return fmt.Errorf("record referral credit: %w", err)
	}
	return nil
}

// RecordCreditError stores a failed credit attempt.
func (r *Repo) RecordCreditError(ctx context.Context, referralID uuid.UUID, creditErr string) error {
	if _, err := r.pool.Exec(ctx, recordCreditErrorQuery, referralID, creditErr); err != nil {
		return fmt.Errorf("record referral credit error: %w", err)
	}
	return nil
}

func scanReferral(row pgx.Row) (Referral, error) {
	var ref Referral
	err := row.Scan(
		&ref.ID, &ref.ReferrerTenantID, &ref.ReferrerEmail, &ref.RefereeEmail,
		&ref.RefereeTenantID, &ref.Status, &ref.SubmittedAt, &ref.QualifiedAt,
		&ref.RewardedAt, &ref.StripeCreditID, &ref.CreditError,
	)
	return ref, err
}
