package repository

import (
	"context"
	"time"

	"pos-license-platform/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	ListByInvoice(ctx context.Context, tx Tx, invoiceID string) ([]*model.Payment, error)
}

// -----------------------------
// Payment confirmations
// -----------------------------

type PaymentConfirmationRepository interface {
	Save(ctx context.Context, tx Tx, c *model.PaymentConfirmation) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentConfirmation, error)
	// FindSubmittedByInvoice returns the single blocking submitted
	// confirmation for an invoice, or ErrNotFound.
	FindSubmittedByInvoice(ctx context.Context, tx Tx, invoiceID string) (*model.PaymentConfirmation, error)
	// ApproveAllSubmittedByInvoice force-approves every submitted
	// confirmation on the invoice (side effect of marking it paid). Returns
	// the count approved.
	ApproveAllSubmittedByInvoice(ctx context.Context, tx Tx, invoiceID, adminNote string, reviewedAt time.Time) (int, error)
	ListByMerchant(ctx context.Context, tx Tx, merchantID string) ([]*model.PaymentConfirmation, error)
}
