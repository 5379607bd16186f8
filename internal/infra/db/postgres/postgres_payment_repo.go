// File: internal/infra/db/postgres/postgres_payment_repo.go
package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"pos-license-platform/internal/domain"
	"pos-license-platform/internal/domain/model"
	"pos-license-platform/internal/domain/ports/repository"
)

// Ensure paymentRepo implements repository.PaymentRepository
var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, invoice_id, amount, method, reference_no, paid_at
) VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO NOTHING;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.InvoiceID, p.Amount, p.Method, p.ReferenceNo, p.PaidAt)
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

func (r *paymentRepo) ListByInvoice(ctx context.Context, tx repository.Tx, invoiceID string) ([]*model.Payment, error) {
	const q = `
SELECT id, invoice_id, amount, method, reference_no, paid_at
  FROM payments
 WHERE invoice_id=$1
 ORDER BY paid_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, invoiceID)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	var out []*model.Payment
	for rows.Next() {
		p := &model.Payment{}
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.ReferenceNo, &p.PaidAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
