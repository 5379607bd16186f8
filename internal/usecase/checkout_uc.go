// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"pos-license-platform/internal/config"
	"pos-license-platform/internal/domain"
	"pos-license-platform/internal/domain/model"
	"pos-license-platform/internal/domain/ports/adapter"
	"pos-license-platform/internal/domain/ports/repository"
	"pos-license-platform/internal/infra/metrics"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

// invoiceDueAfter is how long a checkout invoice stays payable.
const invoiceDueAfter = 48 * time.Hour

var deviceUIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]{3,63}$`)

type CheckoutUseCase interface {
	// Start creates (or supersedes onto) the merchant's pending
	// subscription and opens an invoice for the chosen plan.
	Start(ctx context.Context, merchantID, planID, deviceUID string) (*CheckoutResult, error)
	// Stats returns the merchant's latest invoice and device summary,
	// running the stale-invoice sweep first.
	Stats(ctx context.Context, merchantID string) (*CheckoutStats, error)
	// Cancel cancels an open invoice owned by the merchant and, if its
	// subscription never activated, the subscription with it.
	Cancel(ctx context.Context, merchantID, invoiceID string) error
}

type CheckoutResult struct {
	Invoice      *model.Invoice
	Subscription *model.Subscription
	Device       *model.Device
	Instructions PaymentInstructions
}

// PaymentInstructions tells the merchant how to settle a manual-transfer
// invoice. Built from configuration, not stored.
type PaymentInstructions struct {
	Reference     string
	Amount        int64
	Currency      string
	DueAt         time.Time
	BankName      string
	AccountName   string
	AccountNumber string
	WalletName    string
	WalletNumber  string
	Note          string
}

type CheckoutStats struct {
	Invoice       *model.Invoice
	Subscription  *model.Subscription
	ActiveDevices int
	SweptInvoices int
}

type checkoutUC struct {
	merchants repository.MerchantRepository
	plans     repository.PlanRepository
	devices   repository.DeviceRepository
	subs      repository.SubscriptionRepository
	invoices  repository.InvoiceRepository
	txm       repository.TransactionManager
	clock     adapter.Clock
	audit     adapter.AuditSink
	payCfg    config.PaymentConfig
	log       *zerolog.Logger
}

func NewCheckoutUseCase(
	merchants repository.MerchantRepository,
	plans repository.PlanRepository,
	devices repository.DeviceRepository,
	subs repository.SubscriptionRepository,
	invoices repository.InvoiceRepository,
	txm repository.TransactionManager,
	clock adapter.Clock,
	audit adapter.AuditSink,
	payCfg config.PaymentConfig,
	logger *zerolog.Logger,
) *checkoutUC {
	l := logger.With().Str("component", "CheckoutUC").Logger()
	return &checkoutUC{
		merchants: merchants,
		plans:     plans,
		devices:   devices,
		subs:      subs,
		invoices:  invoices,
		txm:       txm,
		clock:     clock,
		audit:     audit,
		payCfg:    payCfg,
		log:       &l,
	}
}

func (u *checkoutUC) Start(ctx context.Context, merchantID, planID, deviceUID string) (*CheckoutResult, error) {
	merchant, err := u.merchants.FindByID(ctx, repository.NoTX, merchantID)
	if err != nil {
		return nil, err
	}
	if !merchant.IsActive() {
		return nil, domain.ErrMerchantInactive
	}
	plan, err := u.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, domain.ErrPlanInactive
	}
	if !deviceUIDPattern.MatchString(deviceUID) {
		return nil, domain.ErrDeviceUIDInvalid
	}

	var result *CheckoutResult
	err = u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockMerchant(ctx, tx, merchantID); err != nil {
			return err
		}
		now := u.clock.Now()

		// Stale invoices are cancelled before the open-invoice check so
		// that an abandoned checkout never blocks a new one.
		swept, err := u.invoices.CancelStaleByMerchant(ctx, tx, merchantID, now)
		if err != nil {
			return err
		}
		if swept > 0 {
			u.log.Info().Str("merchant_id", merchantID).Int("count", swept).Msg("cancelled stale invoices")
		}
		open, err := u.invoices.HasOpenByMerchant(ctx, tx, merchantID, "", now)
		if err != nil {
			return err
		}
		if open {
			return domain.ErrUnpaidInvoice
		}

		device, err := u.findOrCreateDevice(ctx, tx, merchantID, deviceUID, now)
		if err != nil {
			return err
		}

		inv, err := model.NewInvoice(
			uuid.NewString(), newInvoiceReference(now), merchantID,
			plan.Price, plan.Currency, now.Add(invoiceDueAfter),
			fmt.Sprintf("Subscription to %s", plan.Name), now,
		)
		if err != nil {
			return err
		}

		// One subscription in {pending, active} per merchant: retarget the
		// existing one instead of creating a second.
		sub, err := u.subs.FindCurrentByMerchant(ctx, tx, merchantID)
		switch {
		case err == nil:
			sub.PlanID = plan.ID
			sub.IsTrial = false
			sub.Status = model.SubscriptionStatusPending
			sub.CurrentInvoiceID = inv.ID
		case errorsIsNotFound(err):
			sub, err = model.NewPendingSubscription(uuid.NewString(), merchantID, plan.ID, inv.ID, now)
			if err != nil {
				return err
			}
		default:
			return err
		}
		inv.SubscriptionID = sub.ID

		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return err
		}
		if err := u.invoices.Save(ctx, tx, inv); err != nil {
			return err
		}

		result = &CheckoutResult{
			Invoice:      inv,
			Subscription: sub,
			Device:       device,
			Instructions: u.instructions(inv),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncInvoicesCreated()
	u.audit.Record(ctx, "checkout.started", map[string]any{
		"merchant_id":     merchantID,
		"plan_id":         planID,
		"invoice_id":      result.Invoice.ID,
		"subscription_id": result.Subscription.ID,
	})
	return result, nil
}

func (u *checkoutUC) findOrCreateDevice(ctx context.Context, tx repository.Tx, merchantID, deviceUID string, now time.Time) (*model.Device, error) {
	device, err := u.devices.FindByUID(ctx, tx, merchantID, deviceUID)
	if err == nil {
		return device, nil
	}
	if !errorsIsNotFound(err) {
		return nil, err
	}
	device, err = model.NewDevice(uuid.NewString(), merchantID, deviceUID, now)
	if err != nil {
		return nil, err
	}
	if err := u.devices.Save(ctx, tx, device); err != nil {
		return nil, err
	}
	return device, nil
}

func (u *checkoutUC) instructions(inv *model.Invoice) PaymentInstructions {
	return PaymentInstructions{
		Reference:     inv.Reference,
		Amount:        inv.Amount,
		Currency:      inv.Currency,
		DueAt:         inv.DueAt,
		BankName:      u.payCfg.Bank.BankName,
		AccountName:   u.payCfg.Bank.AccountName,
		AccountNumber: u.payCfg.Bank.AccountNumber,
		WalletName:    u.payCfg.Wallet.Name,
		WalletNumber:  u.payCfg.Wallet.Number,
		Note:          fmt.Sprintf("Include reference %s in the transfer note", inv.Reference),
	}
}

func (u *checkoutUC) Stats(ctx context.Context, merchantID string) (*CheckoutStats, error) {
	if _, err := u.merchants.FindByID(ctx, repository.NoTX, merchantID); err != nil {
		return nil, err
	}
	now := u.clock.Now()
	swept, err := u.invoices.CancelStaleByMerchant(ctx, repository.NoTX, merchantID, now)
	if err != nil {
		return nil, err
	}

	stats := &CheckoutStats{SweptInvoices: swept}
	inv, err := u.invoices.FindLatestByMerchant(ctx, repository.NoTX, merchantID)
	if err != nil && !errorsIsNotFound(err) {
		return nil, err
	}
	stats.Invoice = inv

	if sub, err := u.subs.FindCurrentByMerchant(ctx, repository.NoTX, merchantID); err == nil {
		stats.Subscription = sub
	} else if !errorsIsNotFound(err) {
		return nil, err
	}

	devices, err := u.devices.ListActiveByMerchant(ctx, repository.NoTX, merchantID)
	if err != nil {
		return nil, err
	}
	stats.ActiveDevices = len(devices)
	return stats, nil
}

func (u *checkoutUC) Cancel(ctx context.Context, merchantID, invoiceID string) error {
	inv, err := u.invoices.FindByID(ctx, repository.NoTX, invoiceID)
	if err != nil {
		return err
	}
	if inv.MerchantID != merchantID {
		return domain.ErrInvoiceNotOwned
	}
	if !inv.IsUnsettled() {
		return domain.ErrInvoiceNotCancellable
	}

	err = u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockMerchant(ctx, tx, merchantID); err != nil {
			return err
		}
		inv.Status = model.InvoiceStatusCancelled
		if err := u.invoices.Save(ctx, tx, inv); err != nil {
			return err
		}
		if inv.SubscriptionID == "" {
			return nil
		}
		sub, err := u.subs.FindByID(ctx, tx, inv.SubscriptionID)
		if err != nil {
			if errorsIsNotFound(err) {
				return nil
			}
			return err
		}
		// Subscriptions that already activated keep running; only the
		// never-paid pending one dies with its invoice.
		if sub.IsPending() {
			sub.Status = model.SubscriptionStatusCancelled
			sub.CurrentInvoiceID = ""
			return u.subs.Save(ctx, tx, sub)
		}
		return nil
	})
	if err != nil {
		return err
	}
	u.audit.Record(ctx, "checkout.cancelled", map[string]any{
		"merchant_id": merchantID,
		"invoice_id":  invoiceID,
	})
	return nil
}

// newInvoiceReference builds the human-facing invoice number. ULIDs sort by
// creation time, which keeps references orderly in bank statements.
func newInvoiceReference(now time.Time) string {
	return "INV-" + ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
