package model

import (
	"time"

	"pos-license-platform/internal/domain"
)

type InvoiceStatus string

const (
	InvoiceStatusPending              InvoiceStatus = "pending"
	InvoiceStatusAwaitingConfirmation InvoiceStatus = "awaiting_confirmation"
	InvoiceStatusPaid                 InvoiceStatus = "paid"
	InvoiceStatusCancelled            InvoiceStatus = "cancelled"
	InvoiceStatusExpired              InvoiceStatus = "expired"
)

const (
	PaymentMethodManualBank   = "manual_bank"
	PaymentMethodManualQRIS   = "manual_qris"
	PaymentMethodConfirmation = "payment_confirmation"
	PaymentMethodOther        = "other"
)

// Invoice is a billing obligation against a subscription period. At most one
// invoice per merchant may be open (pending/awaiting_confirmation with DueAt
// in the future) at a time; stale ones are swept before checkout logic runs.
type Invoice struct {
	ID             string // UUID
	MerchantID     string
	SubscriptionID string
	Reference      string // human-facing reference, ULID
	Amount         int64
	Currency       string
	Status         InvoiceStatus
	PaymentMethod  string
	DueAt          time.Time
	PaidAt         *time.Time
	Note           string
	CreatedAt      time.Time
}

func NewInvoice(id, reference, merchantID string, amount int64, currency string, dueAt time.Time, note string, now time.Time) (*Invoice, error) {
	if id == "" || merchantID == "" || amount < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Invoice{
		ID:         id,
		Reference:  reference,
		MerchantID: merchantID,
		Amount:     amount,
		Currency:   currency,
		Status:     InvoiceStatusPending,
		DueAt:      dueAt,
		Note:       note,
		CreatedAt:  now,
	}, nil
}

func (i *Invoice) IsPaid() bool { return i.Status == InvoiceStatusPaid }

// IsOpen reports whether the invoice still blocks a new checkout: unpaid,
// non-terminal, and not yet past due.
func (i *Invoice) IsOpen(now time.Time) bool {
	return i.IsUnsettled() && i.DueAt.After(now)
}

// IsUnsettled reports a non-terminal, unpaid status regardless of due date.
func (i *Invoice) IsUnsettled() bool {
	return i.Status == InvoiceStatusPending || i.Status == InvoiceStatusAwaitingConfirmation
}

func (i *Invoice) IsOverdue(now time.Time) bool {
	return !i.IsPaid() && i.DueAt.Before(now)
}
