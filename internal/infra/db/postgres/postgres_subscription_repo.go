// File: internal/infra/db/postgres/postgres_subscription_repo.go
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pos-license-platform/internal/domain"
	"pos-license-platform/internal/domain/model"
	"pos-license-platform/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

const subscriptionColumns = `id, merchant_id, plan_id, status, is_trial, start_at, end_at, trial_started_at, trial_end_at, current_invoice_id, created_at`

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, merchant_id, plan_id, status, is_trial, start_at, end_at, trial_started_at, trial_end_at, current_invoice_id, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  plan_id=$3, status=$4, is_trial=$5, start_at=$6, end_at=$7, trial_started_at=$8, trial_end_at=$9, current_invoice_id=$10;`

	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.MerchantID, s.PlanID, string(s.Status), s.IsTrial, s.StartAt, s.EndAt, s.TrialStartedAt, s.TrialEndAt, s.CurrentInvoiceID, s.CreatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			if isUniqueViolation(err) {
				return domain.ErrAlreadyExists
			}
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	const q = `
SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *subscriptionRepo) FindCurrentByMerchant(ctx context.Context, tx repository.Tx, merchantID string) (*model.Subscription, error) {
	const q = `
SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE merchant_id=$1 AND status IN ('pending','active')
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, merchantID)
}

func (r *subscriptionRepo) FindLatestByMerchant(ctx context.Context, tx repository.Tx, merchantID string) (*model.Subscription, error) {
	const q = `
SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE merchant_id=$1
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, merchantID)
}

func (r *subscriptionRepo) FindLatestExpiredByMerchant(ctx context.Context, tx repository.Tx, merchantID string) (*model.Subscription, error) {
	const q = `
SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE merchant_id=$1 AND status='expired' AND is_trial=FALSE
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, merchantID)
}

func (r *subscriptionRepo) FindTrialByMerchant(ctx context.Context, tx repository.Tx, merchantID string) (*model.Subscription, error) {
	const q = `
SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE merchant_id=$1 AND is_trial=TRUE
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, merchantID)
}

func (r *subscriptionRepo) ListExpiringWithin(ctx context.Context, tx repository.Tx, now time.Time, days int) ([]*model.Subscription, error) {
	const q = `
SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE status='active'
   AND is_trial=FALSE
   AND end_at > $1
   AND end_at <= $1 + ($2::int * INTERVAL '1 day')
 ORDER BY end_at ASC;`
	return r.queryMany(ctx, tx, q, now, days)
}

func (r *subscriptionRepo) ListOverdue(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Subscription, error) {
	const q = `
SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE status='active' AND is_trial=FALSE AND end_at < $1
 ORDER BY end_at ASC;`
	return r.queryMany(ctx, tx, q, now)
}

func (r *subscriptionRepo) ListExpiredTrials(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Subscription, error) {
	const q = `
SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE status='active' AND is_trial=TRUE AND trial_end_at < $1
 ORDER BY trial_end_at ASC;`
	return r.queryMany(ctx, tx, q, now)
}

func (r *subscriptionRepo) ListPaidByMerchant(ctx context.Context, tx repository.Tx, merchantID string) ([]*model.Subscription, error) {
	const q = `
SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE merchant_id=$1 AND is_trial=FALSE
 ORDER BY created_at DESC;`
	return r.queryMany(ctx, tx, q, merchantID)
}

func (r *subscriptionRepo) queryMany(ctx context.Context, tx repository.Tx, sql string, args ...any) ([]*model.Subscription, error) {
	rows, err := queryRows(ctx, r.pool, tx, sql, args...)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSub(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *subscriptionRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...any) (*model.Subscription, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}

	s := &model.Subscription{}
	var status string
	if err := row.Scan(&s.ID, &s.MerchantID, &s.PlanID, &status, &s.IsTrial, &s.StartAt, &s.EndAt, &s.TrialStartedAt, &s.TrialEndAt, &s.CurrentInvoiceID, &s.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	s.Status = model.SubscriptionStatus(status)
	return s, nil
}

func scanSub(rows pgx.Rows) (*model.Subscription, error) {
	s := &model.Subscription{}
	var status string
	if err := rows.Scan(&s.ID, &s.MerchantID, &s.PlanID, &status, &s.IsTrial, &s.StartAt, &s.EndAt, &s.TrialStartedAt, &s.TrialEndAt, &s.CurrentInvoiceID, &s.CreatedAt); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	s.Status = model.SubscriptionStatus(status)
	return s, nil
}
