// File: internal/infra/db/postgres/postgres_merchant_repo.go
package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pos-license-platform/internal/domain"
	"pos-license-platform/internal/domain/model"
	"pos-license-platform/internal/domain/ports/repository"
)

// Ensure merchantRepo implements repository.MerchantRepository
var _ repository.MerchantRepository = (*merchantRepo)(nil)

type merchantRepo struct {
	pool *pgxpool.Pool
}

func NewMerchantRepo(pool *pgxpool.Pool) *merchantRepo {
	return &merchantRepo{pool: pool}
}

func (r *merchantRepo) Save(ctx context.Context, tx repository.Tx, m *model.Merchant) error {
	const q = `
INSERT INTO merchants (
  id, name, email, status, trial_used, created_at
) VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  name=$2, email=$3, status=$4, trial_used=$5;`

	_, err := execSQL(ctx, r.pool, tx, q, m.ID, m.Name, m.Email, string(m.Status), m.TrialUsed, m.CreatedAt)
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

func (r *merchantRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Merchant, error) {
	const q = `
SELECT id, name, email, status, trial_used, created_at
  FROM merchants
 WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

// MarkTrialUsed consumes the one-shot trial flag. The update is
// conditional so two racing starts cannot both claim it; callers load the
// merchant first, so zero rows means the flag was already consumed.
func (r *merchantRepo) MarkTrialUsed(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE merchants SET trial_used=TRUE WHERE id=$1 AND trial_used=FALSE;`
	tag, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTrialAlreadyUsed
	}
	return nil
}

func (r *merchantRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.MerchantStatus) error {
	const q = `UPDATE merchants SET status=$2 WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, string(status))
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *merchantRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...any) (*model.Merchant, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}

	m := &model.Merchant{}
	var status string
	if err := row.Scan(&m.ID, &m.Name, &m.Email, &status, &m.TrialUsed, &m.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	m.Status = model.MerchantStatus(status)
	return m, nil
}
