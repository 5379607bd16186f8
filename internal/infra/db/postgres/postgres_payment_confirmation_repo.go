// File: internal/infra/db/postgres/postgres_payment_confirmation_repo.go
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

// Ensure paymentConfirmationRepo implements repository.PaymentConfirmationRepository
var _ repository.PaymentConfirmationRepository = (*paymentConfirmationRepo)(nil)

const confirmationColumns = `id, invoice_id, submitted_by, amount, bank_name, reference_no, notes, evidence_path, status, reviewed_by, reviewed_at, admin_note, created_at`

type paymentConfirmationRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentConfirmationRepo(pool *pgxpool.Pool) *paymentConfirmationRepo {
	return &paymentConfirmationRepo{pool: pool}
}

func (r *paymentConfirmationRepo) Save(ctx context.Context, tx repository.Tx, c *model.PaymentConfirmation) error {
	const q = `
INSERT INTO payment_confirmations (
  id, invoice_id, submitted_by, amount, bank_name, reference_no, notes, evidence_path, status, reviewed_by, reviewed_at, admin_note, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
  status=$9, reviewed_by=$10, reviewed_at=$11, admin_note=$12;`

	_, err := execSQL(ctx, r.pool, tx, q, c.ID, c.InvoiceID, c.SubmittedBy, c.Amount, c.BankName, c.ReferenceNo, c.Notes, c.EvidencePath, string(c.Status), c.ReviewedBy, c.ReviewedAt, c.AdminNote, c.CreatedAt)
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

func (r *paymentConfirmationRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentConfirmation, error) {
	const q = `
SELECT ` + confirmationColumns + `
  FROM payment_confirmations
 WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *paymentConfirmationRepo) FindSubmittedByInvoice(ctx context.Context, tx repository.Tx, invoiceID string) (*model.PaymentConfirmation, error) {
	const q = `
SELECT ` + confirmationColumns + `
  FROM payment_confirmations
 WHERE invoice_id=$1 AND status='submitted'
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, invoiceID)
}

func (r *paymentConfirmationRepo) ApproveAllSubmittedByInvoice(ctx context.Context, tx repository.Tx, invoiceID, adminNote string, reviewedAt time.Time) (int, error) {
	const q = `
UPDATE payment_confirmations
   SET status='approved', reviewed_by='system', reviewed_at=$2, admin_note=$3
 WHERE invoice_id=$1 AND status='submitted';`
	tag, err := execSQL(ctx, r.pool, tx, q, invoiceID, reviewedAt, adminNote)
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

func (r *paymentConfirmationRepo) ListByMerchant(ctx context.Context, tx repository.Tx, merchantID string) ([]*model.PaymentConfirmation, error) {
	const q = `
SELECT c.id, c.invoice_id, c.submitted_by, c.amount, c.bank_name, c.reference_no, c.notes, c.evidence_path, c.status, c.reviewed_by, c.reviewed_at, c.admin_note, c.created_at
  FROM payment_confirmations c
  JOIN invoices i ON i.id = c.invoice_id
 WHERE i.merchant_id=$1
 ORDER BY c.created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, merchantID)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	var out []*model.PaymentConfirmation
	for rows.Next() {
		c, err := scanConfirmation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *paymentConfirmationRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...any) (*model.PaymentConfirmation, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}

	c := &model.PaymentConfirmation{}
	var status string
	if err := row.Scan(&c.ID, &c.InvoiceID, &c.SubmittedBy, &c.Amount, &c.BankName, &c.ReferenceNo, &c.Notes, &c.EvidencePath, &status, &c.ReviewedBy, &c.ReviewedAt, &c.AdminNote, &c.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	c.Status = model.ConfirmationStatus(status)
	return c, nil
}

func scanConfirmation(rows pgx.Rows) (*model.PaymentConfirmation, error) {
	c := &model.PaymentConfirmation{}
	var status string
	if err := rows.Scan(&c.ID, &c.InvoiceID, &c.SubmittedBy, &c.Amount, &c.BankName, &c.ReferenceNo, &c.Notes, &c.EvidencePath, &status, &c.ReviewedBy, &c.ReviewedAt, &c.AdminNote, &c.CreatedAt); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	c.Status = model.ConfirmationStatus(status)
	return c, nil
}
