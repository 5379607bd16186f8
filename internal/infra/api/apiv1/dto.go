// File: internal/infra/api/apiv1/dto.go
package apiv1

import (
	"time"

	"pos-license-platform/internal/domain/model"
	"pos-license-platform/internal/usecase"
)

type planView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Code         string `json:"code"`
	Description  string `json:"description,omitempty"`
	Price        int64  `json:"price"`
	Currency     string `json:"currency"`
	DurationDays int    `json:"duration_days"`
	TrialDays    int    `json:"trial_days"`
}

func toPlanView(p *model.Plan) *planView {
	if p == nil {
		return nil
	}
	return &planView{
		ID:           p.ID,
		Name:         p.Name,
		Code:         p.Code,
		Description:  p.Description,
		Price:        p.Price,
		Currency:     p.Currency,
		DurationDays: p.DurationDays,
		TrialDays:    p.TrialDays,
	}
}

func toPlanViews(plans []*model.Plan) []*planView {
	out := make([]*planView, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanView(p))
	}
	return out
}

type subscriptionView struct {
	ID               string     `json:"id"`
	PlanID           string     `json:"plan_id,omitempty"`
	Status           string     `json:"status"`
	IsTrial          bool       `json:"is_trial"`
	StartAt          *time.Time `json:"start_at,omitempty"`
	EndAt            *time.Time `json:"end_at,omitempty"`
	TrialStartedAt   *time.Time `json:"trial_started_at,omitempty"`
	TrialEndAt       *time.Time `json:"trial_end_at,omitempty"`
	CurrentInvoiceID string     `json:"current_invoice_id,omitempty"`
}

func toSubscriptionView(s *model.Subscription) *subscriptionView {
	if s == nil {
		return nil
	}
	return &subscriptionView{
		ID:               s.ID,
		PlanID:           s.PlanID,
		Status:           string(s.Status),
		IsTrial:          s.IsTrial,
		StartAt:          s.StartAt,
		EndAt:            s.EndAt,
		TrialStartedAt:   s.TrialStartedAt,
		TrialEndAt:       s.TrialEndAt,
		CurrentInvoiceID: s.CurrentInvoiceID,
	}
}

type invoiceView struct {
	ID             string     `json:"id"`
	Reference      string     `json:"reference"`
	SubscriptionID string     `json:"subscription_id,omitempty"`
	Amount         int64      `json:"amount"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	PaymentMethod  string     `json:"payment_method,omitempty"`
	DueAt          time.Time  `json:"due_at"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	Note           string     `json:"note,omitempty"`
}

func toInvoiceView(inv *model.Invoice) *invoiceView {
	if inv == nil {
		return nil
	}
	return &invoiceView{
		ID:             inv.ID,
		Reference:      inv.Reference,
		SubscriptionID: inv.SubscriptionID,
		Amount:         inv.Amount,
		Currency:       inv.Currency,
		Status:         string(inv.Status),
		PaymentMethod:  inv.PaymentMethod,
		DueAt:          inv.DueAt,
		PaidAt:         inv.PaidAt,
		Note:           inv.Note,
	}
}

type tokenView struct {
	ID             string    `json:"id"`
	DeviceID       string    `json:"device_id"`
	SubscriptionID string    `json:"subscription_id"`
	Token          string    `json:"token"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func toTokenView(t *model.LicenseToken) *tokenView {
	if t == nil {
		return nil
	}
	return &tokenView{
		ID:             t.ID,
		DeviceID:       t.DeviceID,
		SubscriptionID: t.SubscriptionID,
		Token:          t.PlainToken,
		ExpiresAt:      t.ExpiresAt,
	}
}

type deviceView struct {
	ID        string     `json:"id"`
	DeviceUID string     `json:"device_uid"`
	Label     string     `json:"label,omitempty"`
	IsActive  bool       `json:"is_active"`
	LastSeen  *time.Time `json:"last_seen_at,omitempty"`
}

func toDeviceView(d *model.Device) *deviceView {
	if d == nil {
		return nil
	}
	return &deviceView{
		ID:        d.ID,
		DeviceUID: d.DeviceUID,
		Label:     d.Label,
		IsActive:  d.IsActive,
		LastSeen:  d.LastSeenAt,
	}
}

type instructionsView struct {
	Reference     string    `json:"reference"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	DueAt         time.Time `json:"due_at"`
	BankName      string    `json:"bank_name,omitempty"`
	AccountName   string    `json:"account_name,omitempty"`
	AccountNumber string    `json:"account_number,omitempty"`
	WalletName    string    `json:"wallet_name,omitempty"`
	WalletNumber  string    `json:"wallet_number,omitempty"`
	Note          string    `json:"note,omitempty"`
}

func toInstructionsView(in usecase.PaymentInstructions) instructionsView {
	return instructionsView{
		Reference:     in.Reference,
		Amount:        in.Amount,
		Currency:      in.Currency,
		DueAt:         in.DueAt,
		BankName:      in.BankName,
		AccountName:   in.AccountName,
		AccountNumber: in.AccountNumber,
		WalletName:    in.WalletName,
		WalletNumber:  in.WalletNumber,
		Note:          in.Note,
	}
}

type confirmationView struct {
	ID          string     `json:"id"`
	InvoiceID   string     `json:"invoice_id"`
	Amount      int64      `json:"amount"`
	BankName    string     `json:"bank_name,omitempty"`
	ReferenceNo string     `json:"reference_no,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Status      string     `json:"status"`
	ReviewedBy  string     `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	AdminNote   string     `json:"admin_note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toConfirmationView(c *model.PaymentConfirmation) *confirmationView {
	if c == nil {
		return nil
	}
	return &confirmationView{
		ID:          c.ID,
		InvoiceID:   c.InvoiceID,
		Amount:      c.Amount,
		BankName:    c.BankName,
		ReferenceNo: c.ReferenceNo,
		Notes:       c.Notes,
		Status:      string(c.Status),
		ReviewedBy:  c.ReviewedBy,
		ReviewedAt:  c.ReviewedAt,
		AdminNote:   c.AdminNote,
		CreatedAt:   c.CreatedAt,
	}
}
