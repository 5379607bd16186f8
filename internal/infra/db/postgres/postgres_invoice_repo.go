// File: internal/infra/db/postgres/postgres_invoice_repo.go
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

// Ensure invoiceRepo implements repository.InvoiceRepository
var _ repository.InvoiceRepository = (*invoiceRepo)(nil)

const invoiceColumns = `id, merchant_id, subscription_id, reference, amount, currency, status, payment_method, due_at, paid_at, note, created_at`

type invoiceRepo struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepo(pool *pgxpool.Pool) *invoiceRepo {
	return &invoiceRepo{pool: pool}
}

func (r *invoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	const q = `
INSERT INTO invoices (
  id, merchant_id, subscription_id, reference, amount, currency, status, payment_method, due_at, paid_at, note, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  subscription_id=$3, status=$7, payment_method=$8, due_at=$9, paid_at=$10, note=$11;`

	_, err := execSQL(ctx, r.pool, tx, q, inv.ID, inv.MerchantID, inv.SubscriptionID, inv.Reference, inv.Amount, inv.Currency, string(inv.Status), inv.PaymentMethod, inv.DueAt, inv.PaidAt, inv.Note, inv.CreatedAt)
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

func (r *invoiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Invoice, error) {
	const q = `
SELECT ` + invoiceColumns + `
  FROM invoices
 WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *invoiceRepo) FindLatestByMerchant(ctx context.Context, tx repository.Tx, merchantID string) (*model.Invoice, error) {
	const q = `
SELECT ` + invoiceColumns + `
  FROM invoices
 WHERE merchant_id=$1
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, merchantID)
}

func (r *invoiceRepo) CancelStaleByMerchant(ctx context.Context, tx repository.Tx, merchantID string, now time.Time) (int, error) {
	const q = `
UPDATE invoices
   SET status='cancelled'
 WHERE merchant_id=$1
   AND status IN ('pending','awaiting_confirmation')
   AND due_at < $2;`
	tag, err := execSQL(ctx, r.pool, tx, q, merchantID, now)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return 0, err
		default:
			return 0, domain.ErrOperationFailed
		}
	}
	return int(tag.RowsAffected()), nil
}

func (r *invoiceRepo) HasOpenByMerchant(ctx context.Context, tx repository.Tx, merchantID, excludeID string, now time.Time) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1
    FROM invoices
   WHERE merchant_id=$1
     AND status IN ('pending','awaiting_confirmation')
     AND due_at > $2
     AND ($3 = '' OR id <> $3)
);`
	row, err := pickRow(ctx, r.pool, tx, q, merchantID, now, excludeID)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

func (r *invoiceRepo) FindOpenBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string, now time.Time) (*model.Invoice, error) {
	const q = `
SELECT ` + invoiceColumns + `
  FROM invoices
 WHERE subscription_id=$1
   AND status IN ('pending','awaiting_confirmation')
   AND due_at > $2
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, subscriptionID, now)
}

func (r *invoiceRepo) ListOverdue(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Invoice, error) {
	const q = `
SELECT ` + invoiceColumns + `
  FROM invoices
 WHERE status IN ('pending','awaiting_confirmation')
   AND due_at < $1
 ORDER BY due_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, now)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	var out []*model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *invoiceRepo) SumPaidBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) (int64, int, error) {
	const q = `
SELECT COALESCE(SUM(amount),0), COUNT(*)
  FROM invoices
 WHERE subscription_id=$1 AND status='paid';`
	row, err := pickRow(ctx, r.pool, tx, q, subscriptionID)
	if err != nil {
		return 0, 0, err
	}
	var total int64
	var n int
	if err := row.Scan(&total, &n); err != nil {
		return 0, 0, domain.ErrReadDatabaseRow
	}
	return total, n, nil
}

func (r *invoiceRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...any) (*model.Invoice, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}

	inv := &model.Invoice{}
	var status string
	if err := row.Scan(&inv.ID, &inv.MerchantID, &inv.SubscriptionID, &inv.Reference, &inv.Amount, &inv.Currency, &status, &inv.PaymentMethod, &inv.DueAt, &inv.PaidAt, &inv.Note, &inv.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	inv.Status = model.InvoiceStatus(status)
	return inv, nil
}

func scanInvoice(rows pgx.Rows) (*model.Invoice, error) {
	inv := &model.Invoice{}
	var status string
	if err := rows.Scan(&inv.ID, &inv.MerchantID, &inv.SubscriptionID, &inv.Reference, &inv.Amount, &inv.Currency, &status, &inv.PaymentMethod, &inv.DueAt, &inv.PaidAt, &inv.Note, &inv.CreatedAt); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	inv.Status = model.InvoiceStatus(status)
	return inv, nil
}
