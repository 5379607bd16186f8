// File: internal/infra/db/postgres/postgres_plan_repo.go
package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pos-license-platform/internal/domain"
	"pos-license-platform/internal/domain/model"
	"pos-license-platform/internal/domain/ports/repository"
)

// Ensure planRepo implements repository.PlanRepository
var _ repository.PlanRepository = (*planRepo)(nil)

type planRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

func (r *planRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	const q = `
INSERT INTO plans (
  id, name, code, description, price, currency, duration_days, trial_days, is_active, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  name=$2, code=$3, description=$4, price=$5, currency=$6, duration_days=$7, trial_days=$8, is_active=$9;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Name, p.Code, p.Description, p.Price, p.Currency, p.DurationDays, p.TrialDays, p.IsActive, p.CreatedAt)
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

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	const q = `
SELECT id, name, code, description, price, currency, duration_days, trial_days, is_active, created_at
  FROM plans
 WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *planRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Plan, error) {
	const q = `
SELECT id, name, code, description, price, currency, duration_days, trial_days, is_active, created_at
  FROM plans
 WHERE code=$1;`
	return r.queryOne(ctx, tx, q, code)
}

func (r *planRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	const q = `
SELECT id, name, code, description, price, currency, duration_days, trial_days, is_active, created_at
  FROM plans
 WHERE is_active=TRUE
 ORDER BY price ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	var out []*model.Plan
	for rows.Next() {
		p := &model.Plan{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.Description, &p.Price, &p.Currency, &p.DurationDays, &p.TrialDays, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *planRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...any) (*model.Plan, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}

	p := &model.Plan{}
	if err := row.Scan(&p.ID, &p.Name, &p.Code, &p.Description, &p.Price, &p.Currency, &p.DurationDays, &p.TrialDays, &p.IsActive, &p.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
