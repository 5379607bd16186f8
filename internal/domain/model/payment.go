package model

import (
	"time"

	"pos-license-platform/internal/domain"
)

// Payment is the durable record of money received against an invoice. It is
// created whenever an invoice is marked paid, by either approval path.
type Payment struct {
	ID          string // UUID
	InvoiceID   string
	Amount      int64
	Method      string
	ReferenceNo string
	PaidAt      time.Time
}

type ConfirmationStatus string

const (
	ConfirmationStatusSubmitted ConfirmationStatus = "submitted"
	ConfirmationStatusApproved  ConfirmationStatus = "approved"
	ConfirmationStatusRejected  ConfirmationStatus = "rejected"
)

// PaymentConfirmation is merchant-submitted evidence of a manual payment
// awaiting admin review. At most one submitted confirmation exists per
// invoice; approved/rejected are terminal.
type PaymentConfirmation struct {
	ID           string // UUID
	InvoiceID    string
	SubmittedBy  string
	Amount       int64
	BankName     string
	ReferenceNo  string
	Notes        string
	EvidencePath string
	Status       ConfirmationStatus
	ReviewedBy   string
	ReviewedAt   *time.Time
	AdminNote    string
	CreatedAt    time.Time
}

func NewPaymentConfirmation(id, invoiceID, submittedBy string, amount int64, now time.Time) (*PaymentConfirmation, error) {
	if id == "" || invoiceID == "" || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &PaymentConfirmation{
		ID:          id,
		InvoiceID:   invoiceID,
		SubmittedBy: submittedBy,
		Amount:      amount,
		Status:      ConfirmationStatusSubmitted,
		CreatedAt:   now,
	}, nil
}

func (c *PaymentConfirmation) IsSubmitted() bool { return c.Status == ConfirmationStatusSubmitted }
