// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"pos-license-platform/internal/domain"
	"pos-license-platform/internal/domain/model"
	"pos-license-platform/internal/domain/ports/adapter"
	"pos-license-platform/internal/domain/ports/repository"
	"pos-license-platform/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// SubmitConfirmation records merchant payment evidence and moves the
	// invoice to awaiting_confirmation.
	SubmitConfirmation(ctx context.Context, merchantID string, in SubmitConfirmationInput) (*model.PaymentConfirmation, error)
	// ApproveConfirmation marks the confirmation approved, the invoice
	// paid, and activates the linked subscription, in one transaction.
	ApproveConfirmation(ctx context.Context, confirmationID, reviewerID, adminNote string) error
	// RejectConfirmation closes the confirmation without touching the
	// invoice, making room for a resubmission.
	RejectConfirmation(ctx context.Context, confirmationID, reviewerID, reason string) error
	// MarkInvoiceAsPaid is the direct admin path: same paid + activation
	// effects without a confirmation record, force-approving any pending
	// confirmations on the invoice.
	MarkInvoiceAsPaid(ctx context.Context, invoiceID, method, referenceNo, adminID string) error
	ListConfirmations(ctx context.Context, merchantID string) ([]*model.PaymentConfirmation, error)
}

type SubmitConfirmationInput struct {
	InvoiceID    string
	Amount       int64
	BankName     string
	ReferenceNo  string
	Notes        string
	EvidenceName string
	Evidence     []byte
}

type paymentUC struct {
	merchants     repository.MerchantRepository
	plans         repository.PlanRepository
	devices       repository.DeviceRepository
	subs          repository.SubscriptionRepository
	invoices      repository.InvoiceRepository
	payments      repository.PaymentRepository
	confirmations repository.PaymentConfirmationRepository
	minter        tokenMinter
	evidence      adapter.EvidenceStore
	txm           repository.TransactionManager
	clock         adapter.Clock
	audit         adapter.AuditSink
	log           *zerolog.Logger
}

func NewPaymentUseCase(
	merchants repository.MerchantRepository,
	plans repository.PlanRepository,
	devices repository.DeviceRepository,
	subs repository.SubscriptionRepository,
	invoices repository.InvoiceRepository,
	payments repository.PaymentRepository,
	confirmations repository.PaymentConfirmationRepository,
	minter tokenMinter,
	evidence adapter.EvidenceStore,
	txm repository.TransactionManager,
	clock adapter.Clock,
	audit adapter.AuditSink,
	logger *zerolog.Logger,
) *paymentUC {
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		merchants:     merchants,
		plans:         plans,
		devices:       devices,
		subs:          subs,
		invoices:      invoices,
		payments:      payments,
		confirmations: confirmations,
		minter:        minter,
		evidence:      evidence,
		txm:           txm,
		clock:         clock,
		audit:         audit,
		log:           &l,
	}
}

func (u *paymentUC) SubmitConfirmation(ctx context.Context, merchantID string, in SubmitConfirmationInput) (*model.PaymentConfirmation, error) {
	inv, err := u.invoices.FindByID(ctx, repository.NoTX, in.InvoiceID)
	if err != nil {
		return nil, err
	}
	if inv.MerchantID != merchantID {
		return nil, domain.ErrInvoiceNotOwned
	}
	if inv.IsPaid() {
		return nil, domain.ErrInvoiceAlreadyPaid
	}
	if _, err := u.confirmations.FindSubmittedByInvoice(ctx, repository.NoTX, inv.ID); err == nil {
		return nil, domain.ErrConfirmationPending
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := u.clock.Now()
	conf, err := model.NewPaymentConfirmation(uuid.NewString(), inv.ID, merchantID, in.Amount, now)
	if err != nil {
		return nil, err
	}
	conf.BankName = in.BankName
	conf.ReferenceNo = in.ReferenceNo
	conf.Notes = in.Notes

	// Evidence is written before the transaction; a tx rollback leaves an
	// orphan file, never a confirmation without its evidence.
	if len(in.Evidence) > 0 {
		name := in.EvidenceName
		if name == "" {
			name = fmt.Sprintf("%s-evidence", conf.ID)
		}
		path, err := u.evidence.Store(ctx, name, in.Evidence)
		if err != nil {
			return nil, err
		}
		conf.EvidencePath = path
	}

	err = u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockMerchant(ctx, tx, merchantID); err != nil {
			return err
		}
		// Re-read under the lock: the pre-checks above ran unlocked, so a
		// concurrent settle or submit may have changed the invoice since.
		cur, err := u.invoices.FindByID(ctx, tx, inv.ID)
		if err != nil {
			return err
		}
		if cur.IsPaid() {
			return domain.ErrInvoiceAlreadyPaid
		}
		if _, err := u.confirmations.FindSubmittedByInvoice(ctx, tx, cur.ID); err == nil {
			return domain.ErrConfirmationPending
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err := u.confirmations.Save(ctx, tx, conf); err != nil {
			return err
		}
		cur.Status = model.InvoiceStatusAwaitingConfirmation
		if err := u.invoices.Save(ctx, tx, cur); err != nil {
			return err
		}
		inv = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.audit.Record(ctx, "payment.confirmation_submitted", map[string]any{
		"merchant_id":     merchantID,
		"invoice_id":      inv.ID,
		"confirmation_id": conf.ID,
	})
	return conf, nil
}

func (u *paymentUC) ApproveConfirmation(ctx context.Context, confirmationID, reviewerID, adminNote string) error {
	conf, err := u.confirmations.FindByID(ctx, repository.NoTX, confirmationID)
	if err != nil {
		return err
	}
	if !conf.IsSubmitted() {
		return domain.ErrConfirmationNotPending
	}

	var inv *model.Invoice
	err = u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockMerchant(ctx, tx, conf.SubmittedBy); err != nil {
			return err
		}
		// Re-read under the lock: a concurrent approval or direct
		// mark-paid may have settled the invoice after the pre-check.
		cur, err := u.confirmations.FindByID(ctx, tx, confirmationID)
		if err != nil {
			return err
		}
		if !cur.IsSubmitted() {
			return domain.ErrConfirmationNotPending
		}
		inv, err = u.invoices.FindByID(ctx, tx, cur.InvoiceID)
		if err != nil {
			return err
		}
		if inv.IsPaid() {
			return domain.ErrInvoiceAlreadyPaid
		}
		now := u.clock.Now()
		cur.Status = model.ConfirmationStatusApproved
		cur.ReviewedBy = reviewerID
		cur.ReviewedAt = &now
		cur.AdminNote = adminNote
		if err := u.confirmations.Save(ctx, tx, cur); err != nil {
			return err
		}
		conf = cur
		return u.settleInvoice(ctx, tx, inv, model.PaymentMethodConfirmation, cur.ReferenceNo, now)
	})
	if err != nil {
		return err
	}

	metrics.IncInvoicesPaid()
	u.audit.Record(ctx, "payment.confirmation_approved", map[string]any{
		"confirmation_id": conf.ID,
		"invoice_id":      inv.ID,
		"reviewed_by":     reviewerID,
	})
	return nil
}

func (u *paymentUC) RejectConfirmation(ctx context.Context, confirmationID, reviewerID, reason string) error {
	conf, err := u.confirmations.FindByID(ctx, repository.NoTX, confirmationID)
	if err != nil {
		return err
	}
	if !conf.IsSubmitted() {
		return domain.ErrConfirmationNotPending
	}

	err = u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockMerchant(ctx, tx, conf.SubmittedBy); err != nil {
			return err
		}
		cur, err := u.confirmations.FindByID(ctx, tx, confirmationID)
		if err != nil {
			return err
		}
		if !cur.IsSubmitted() {
			return domain.ErrConfirmationNotPending
		}
		now := u.clock.Now()
		cur.Status = model.ConfirmationStatusRejected
		cur.ReviewedBy = reviewerID
		cur.ReviewedAt = &now
		cur.AdminNote = reason
		if err := u.confirmations.Save(ctx, tx, cur); err != nil {
			return err
		}
		conf = cur
		return nil
	})
	if err != nil {
		return err
	}
	u.audit.Record(ctx, "payment.confirmation_rejected", map[string]any{
		"confirmation_id": conf.ID,
		"invoice_id":      conf.InvoiceID,
		"reviewed_by":     reviewerID,
	})
	return nil
}

func (u *paymentUC) MarkInvoiceAsPaid(ctx context.Context, invoiceID, method, referenceNo, adminID string) error {
	inv, err := u.invoices.FindByID(ctx, repository.NoTX, invoiceID)
	if err != nil {
		return err
	}
	if inv.IsPaid() {
		return domain.ErrInvoiceAlreadyPaid
	}
	if method == "" {
		method = model.PaymentMethodOther
	}

	err = u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockMerchant(ctx, tx, inv.MerchantID); err != nil {
			return err
		}
		cur, err := u.invoices.FindByID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if cur.IsPaid() {
			return domain.ErrInvoiceAlreadyPaid
		}
		inv = cur
		return u.settleInvoice(ctx, tx, cur, method, referenceNo, u.clock.Now())
	})
	if err != nil {
		return err
	}

	metrics.IncInvoicesPaid()
	u.audit.Record(ctx, "invoice.marked_paid", map[string]any{
		"invoice_id": inv.ID,
		"method":     method,
		"admin_id":   adminID,
	})
	return nil
}

// settleInvoice is the shared paid-path: invoice to paid, durable Payment
// record, stray submitted confirmations force-approved, subscription
// activated and a fresh token minted. Runs inside the caller's transaction.
func (u *paymentUC) settleInvoice(ctx context.Context, tx repository.Tx, inv *model.Invoice, method, referenceNo string, now time.Time) error {
	inv.Status = model.InvoiceStatusPaid
	inv.PaidAt = &now
	inv.PaymentMethod = method
	if err := u.invoices.Save(ctx, tx, inv); err != nil {
		return err
	}

	payment := &model.Payment{
		ID:          uuid.NewString(),
		InvoiceID:   inv.ID,
		Amount:      inv.Amount,
		Method:      method,
		ReferenceNo: referenceNo,
		PaidAt:      now,
	}
	if err := u.payments.Save(ctx, tx, payment); err != nil {
		return err
	}
	metrics.AddInvoiceRevenue(inv.Currency, inv.Amount)

	// Duplicate submissions that slipped past the one-submitted gate are
	// closed out alongside the one being acted on.
	if _, err := u.confirmations.ApproveAllSubmittedByInvoice(ctx, tx, inv.ID, "auto-approved: invoice paid", now); err != nil {
		return err
	}

	if inv.SubscriptionID == "" {
		return nil
	}
	sub, err := u.subs.FindByID(ctx, tx, inv.SubscriptionID)
	if err != nil {
		return err
	}
	return u.activateSubscription(ctx, tx, sub, now)
}

// activateSubscription applies the renewal-preserving activation rule: a
// first activation starts now, a renewal extends from whichever is later of
// now and the previous period end, so unexpired time is never discarded.
func (u *paymentUC) activateSubscription(ctx context.Context, tx repository.Tx, sub *model.Subscription, now time.Time) error {
	plan, err := u.plans.FindByID(ctx, tx, sub.PlanID)
	if err != nil {
		return err
	}

	start := now
	base := now
	if sub.EndAt != nil && sub.EndAt.After(now) {
		base = *sub.EndAt
	}
	if sub.StartAt == nil {
		sub.StartAt = &start
	}
	end := base.AddDate(0, 0, plan.DurationDays)
	sub.EndAt = &end
	sub.IsTrial = false
	sub.TrialEndAt = nil
	sub.Status = model.SubscriptionStatusActive
	if err := u.subs.Save(ctx, tx, sub); err != nil {
		return err
	}
	metrics.IncSubscriptionsActivated()

	merchant, err := u.merchants.FindByID(ctx, tx, sub.MerchantID)
	if err != nil {
		return err
	}
	device, err := u.devices.FindLatestActiveByMerchant(ctx, tx, sub.MerchantID)
	if err != nil {
		// No registered device yet; the terminal picks its token up on the
		// next issue call.
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if _, err := u.minter.MintWithinTx(ctx, tx, merchant, device, sub, nil); err != nil {
		return err
	}
	return nil
}

func (u *paymentUC) ListConfirmations(ctx context.Context, merchantID string) ([]*model.PaymentConfirmation, error) {
	return u.confirmations.ListByMerchant(ctx, repository.NoTX, merchantID)
}
