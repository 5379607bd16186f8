package repository

import (
	"context"
	"time"

	"pos-license-platform/internal/domain/model"
)

// InvoiceRepository is the port for billing invoices.
type InvoiceRepository interface {
	Save(ctx context.Context, tx Tx, inv *model.Invoice) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Invoice, error)
	FindLatestByMerchant(ctx context.Context, tx Tx, merchantID string) (*model.Invoice, error)
	// CancelStaleByMerchant cancels the merchant's unsettled invoices whose
	// DueAt has passed. This is the lazy sweep that runs before any
	// "existing unpaid invoice" check, so stale invoices never block new
	// checkout. Returns the number of invoices cancelled.
	CancelStaleByMerchant(ctx context.Context, tx Tx, merchantID string, now time.Time) (int, error)
	// HasOpenByMerchant reports whether an unsettled invoice with DueAt in
	// the future exists, optionally ignoring one invoice id (the renewal
	// path excludes the subscription's current invoice).
	HasOpenByMerchant(ctx context.Context, tx Tx, merchantID, excludeID string, now time.Time) (bool, error)
	// FindOpenBySubscription returns the newest unsettled, not-yet-due
	// invoice linked to the subscription, if any.
	FindOpenBySubscription(ctx context.Context, tx Tx, subscriptionID string, now time.Time) (*model.Invoice, error)
	// ListOverdue returns all unsettled invoices past DueAt, for the
	// scheduled overdue sweep.
	ListOverdue(ctx context.Context, tx Tx, now time.Time) ([]*model.Invoice, error)
	// SumPaidBySubscription totals paid invoice amounts for renewal history.
	SumPaidBySubscription(ctx context.Context, tx Tx, subscriptionID string) (int64, int, error)
}
