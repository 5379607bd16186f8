// File: internal/usecase/renewal_uc.go
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
var _ RenewalUseCase = (*renewalUC)(nil)

const (
	// renewalDueAfter is how long a renewal invoice stays payable.
	renewalDueAfter = 72 * time.Hour
	// renewActiveWindowDays is how close to expiry an active subscription
	// must be before it can renew.
	renewActiveWindowDays = 30
	// renewExpiredGraceDays is how long after expiry a lapsed subscription
	// can still renew instead of starting over.
	renewExpiredGraceDays = 90
)

type RenewalUseCase interface {
	// SubscriptionsExpiringWithin lists non-trial active subscriptions
	// ending in the next days.
	SubscriptionsExpiringWithin(ctx context.Context, days int) ([]*model.Subscription, error)
	// GenerateRenewalInvoices opens a renewal invoice for each subscription
	// expiring within the lead window that has none yet. Idempotent.
	GenerateRenewalInvoices(ctx context.Context, leadDays int) (int, error)
	// ExpireOverdueSubscriptions moves active subscriptions past EndAt to
	// expired and revokes their tokens. Returns the count expired.
	ExpireOverdueSubscriptions(ctx context.Context) (int, error)
	// ExpireOverdueInvoices marks unsettled invoices past DueAt as expired;
	// a linked still-pending subscription expires with it.
	ExpireOverdueInvoices(ctx context.Context) (int, error)
	// Renew opens (or reuses) a renewal invoice for the merchant's current
	// or most recent subscription, optionally switching plans.
	Renew(ctx context.Context, merchantID, newPlanID string) (*RenewalResult, error)
	Stats(ctx context.Context, merchantID string) (*RenewalStats, error)
	History(ctx context.Context, merchantID string) ([]RenewalHistoryEntry, error)
	AvailablePlans(ctx context.Context) ([]*model.Plan, error)
}

type RenewalResult struct {
	Invoice      *model.Invoice
	Subscription *model.Subscription
	Reused       bool
}

type RenewalStats struct {
	Subscription  *model.Subscription
	Plan          *model.Plan
	Renewable     bool
	RenewalReason string
	DaysUntilEnd  int
	OpenInvoice   *model.Invoice
}

type RenewalHistoryEntry struct {
	Subscription *model.Subscription
	Plan         *model.Plan
	TotalPaid    int64
	PaidInvoices int
}

type renewalUC struct {
	merchants repository.MerchantRepository
	plans     repository.PlanRepository
	subs      repository.SubscriptionRepository
	invoices  repository.InvoiceRepository
	tokens    repository.LicenseTokenRepository
	txm       repository.TransactionManager
	clock     adapter.Clock
	audit     adapter.AuditSink
	log       *zerolog.Logger
}

func NewRenewalUseCase(
	merchants repository.MerchantRepository,
	plans repository.PlanRepository,
	subs repository.SubscriptionRepository,
	invoices repository.InvoiceRepository,
	tokens repository.LicenseTokenRepository,
	txm repository.TransactionManager,
	clock adapter.Clock,
	audit adapter.AuditSink,
	logger *zerolog.Logger,
) *renewalUC {
	l := logger.With().Str("component", "RenewalUC").Logger()
	return &renewalUC{
		merchants: merchants,
		plans:     plans,
		subs:      subs,
		invoices:  invoices,
		tokens:    tokens,
		txm:       txm,
		clock:     clock,
		audit:     audit,
		log:       &l,
	}
}

func (u *renewalUC) SubscriptionsExpiringWithin(ctx context.Context, days int) ([]*model.Subscription, error) {
	return u.subs.ListExpiringWithin(ctx, repository.NoTX, u.clock.Now(), days)
}

func (u *renewalUC) GenerateRenewalInvoices(ctx context.Context, leadDays int) (int, error) {
	now := u.clock.Now()
	expiring, err := u.subs.ListExpiringWithin(ctx, repository.NoTX, now, leadDays)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, sub := range expiring {
		ok, err := u.generateRenewalInvoice(ctx, sub)
		if err != nil {
			u.log.Error().Err(err).
				Str("subscription_id", sub.ID).
				Str("merchant_id", sub.MerchantID).
				Msg("failed to generate renewal invoice")
			continue
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func (u *renewalUC) generateRenewalInvoice(ctx context.Context, sub *model.Subscription) (bool, error) {
	created := false
	err := u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockMerchant(ctx, tx, sub.MerchantID); err != nil {
			return err
		}
		now := u.clock.Now()
		// Re-running the job must not stack invoices on one period.
		if _, err := u.invoices.FindOpenBySubscription(ctx, tx, sub.ID, now); err == nil {
			return nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		plan, err := u.plans.FindByID(ctx, tx, sub.PlanID)
		if err != nil {
			return err
		}
		inv, err := u.newRenewalInvoice(sub, plan, now)
		if err != nil {
			return err
		}
		if err := u.invoices.Save(ctx, tx, inv); err != nil {
			return err
		}
		sub.CurrentInvoiceID = inv.ID
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if created {
		metrics.IncInvoicesCreated()
		u.audit.Record(ctx, "renewal.invoice_generated", map[string]any{
			"merchant_id":     sub.MerchantID,
			"subscription_id": sub.ID,
			"invoice_id":      sub.CurrentInvoiceID,
		})
	}
	return created, nil
}

func (u *renewalUC) newRenewalInvoice(sub *model.Subscription, plan *model.Plan, now time.Time) (*model.Invoice, error) {
	inv, err := model.NewInvoice(
		uuid.NewString(), newInvoiceReference(now), sub.MerchantID,
		plan.Price, plan.Currency, now.Add(renewalDueAfter),
		fmt.Sprintf("Renewal of %s", plan.Name), now,
	)
	if err != nil {
		return nil, err
	}
	inv.SubscriptionID = sub.ID
	return inv, nil
}

func (u *renewalUC) ExpireOverdueSubscriptions(ctx context.Context) (int, error) {
	now := u.clock.Now()
	overdue, err := u.subs.ListOverdue(ctx, repository.NoTX, now)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, sub := range overdue {
		if err := u.expireSubscription(ctx, sub); err != nil {
			u.log.Error().Err(err).
				Str("subscription_id", sub.ID).
				Str("merchant_id", sub.MerchantID).
				Msg("failed to expire overdue subscription")
			continue
		}
		count++
	}
	if count > 0 {
		metrics.IncSubscriptionsExpired(count)
	}
	return count, nil
}

// expireSubscription is the single expiry write path: status flip and token
// revocation land in the same transaction so a device can never hold a live
// token for an expired subscription.
func (u *renewalUC) expireSubscription(ctx context.Context, sub *model.Subscription) error {
	err := u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockMerchant(ctx, tx, sub.MerchantID); err != nil {
			return err
		}
		now := u.clock.Now()
		sub.Status = model.SubscriptionStatusExpired
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return err
		}
		revoked, err := u.tokens.RevokeAllBySubscription(ctx, tx, sub.ID, now)
		if err != nil {
			return err
		}
		if revoked > 0 {
			metrics.AddTokensRevoked(revoked)
		}
		return nil
	})
	if err != nil {
		return err
	}
	u.audit.Record(ctx, "subscription.expired", map[string]any{
		"merchant_id":     sub.MerchantID,
		"subscription_id": sub.ID,
	})
	return nil
}

func (u *renewalUC) ExpireOverdueInvoices(ctx context.Context) (int, error) {
	now := u.clock.Now()
	overdue, err := u.invoices.ListOverdue(ctx, repository.NoTX, now)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, inv := range overdue {
		if err := u.expireInvoice(ctx, inv); err != nil {
			u.log.Error().Err(err).
				Str("invoice_id", inv.ID).
				Str("merchant_id", inv.MerchantID).
				Msg("failed to expire overdue invoice")
			continue
		}
		count++
	}
	return count, nil
}

func (u *renewalUC) expireInvoice(ctx context.Context, inv *model.Invoice) error {
	return u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockMerchant(ctx, tx, inv.MerchantID); err != nil {
			return err
		}
		now := u.clock.Now()
		inv.Status = model.InvoiceStatusExpired
		if err := u.invoices.Save(ctx, tx, inv); err != nil {
			return err
		}
		if inv.SubscriptionID == "" {
			return nil
		}
		sub, err := u.subs.FindByID(ctx, tx, inv.SubscriptionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		// A subscription that never activated dies with its invoice; an
		// active one keeps running until its own EndAt sweep.
		if !sub.IsPending() {
			return nil
		}
		sub.Status = model.SubscriptionStatusExpired
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return err
		}
		revoked, err := u.tokens.RevokeAllBySubscription(ctx, tx, sub.ID, now)
		if err != nil {
			return err
		}
		if revoked > 0 {
			metrics.AddTokensRevoked(revoked)
		}
		return nil
	})
}

func (u *renewalUC) Renew(ctx context.Context, merchantID, newPlanID string) (*RenewalResult, error) {
	merchant, err := u.merchants.FindByID(ctx, repository.NoTX, merchantID)
	if err != nil {
		return nil, err
	}
	if !merchant.IsActive() {
		return nil, domain.ErrMerchantInactive
	}

	sub, err := u.resolveRenewable(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	if reason := u.renewability(sub, u.clock.Now()); reason != "" {
		return nil, domain.ErrNotRenewable
	}

	plan, err := u.resolveRenewalPlan(ctx, sub, newPlanID)
	if err != nil {
		return nil, err
	}
	planChanged := plan.ID != sub.PlanID

	var result *RenewalResult
	err = u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockMerchant(ctx, tx, merchantID); err != nil {
			return err
		}
		now := u.clock.Now()
		if _, err := u.invoices.CancelStaleByMerchant(ctx, tx, merchantID, now); err != nil {
			return err
		}
		// The subscription's own renewal invoice does not block; any other
		// open invoice does.
		blocked, err := u.invoices.HasOpenByMerchant(ctx, tx, merchantID, sub.CurrentInvoiceID, now)
		if err != nil {
			return err
		}
		if blocked {
			return domain.ErrUnpaidInvoice
		}

		if !planChanged && !sub.IsExpired(now) {
			// Same plan, still running: reuse the scanner's invoice if it
			// already opened one.
			if inv, err := u.invoices.FindOpenBySubscription(ctx, tx, sub.ID, now); err == nil {
				result = &RenewalResult{Invoice: inv, Subscription: sub, Reused: true}
				return nil
			} else if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			inv, err := u.newRenewalInvoice(sub, plan, now)
			if err != nil {
				return err
			}
			if err := u.invoices.Save(ctx, tx, inv); err != nil {
				return err
			}
			sub.CurrentInvoiceID = inv.ID
			if err := u.subs.Save(ctx, tx, sub); err != nil {
				return err
			}
			result = &RenewalResult{Invoice: inv, Subscription: sub}
			return nil
		}

		// Plan change or lapsed period: a fresh pending subscription
		// supersedes the old one.
		if sub.IsActive() {
			sub.Status = model.SubscriptionStatusCancelled
			if err := u.subs.Save(ctx, tx, sub); err != nil {
				return err
			}
		}
		inv, err := model.NewInvoice(
			uuid.NewString(), newInvoiceReference(now), merchantID,
			plan.Price, plan.Currency, now.Add(renewalDueAfter),
			fmt.Sprintf("Renewal of %s", plan.Name), now,
		)
		if err != nil {
			return err
		}
		fresh, err := model.NewPendingSubscription(uuid.NewString(), merchantID, plan.ID, inv.ID, now)
		if err != nil {
			return err
		}
		inv.SubscriptionID = fresh.ID
		if err := u.subs.Save(ctx, tx, fresh); err != nil {
			return err
		}
		if err := u.invoices.Save(ctx, tx, inv); err != nil {
			return err
		}
		result = &RenewalResult{Invoice: inv, Subscription: fresh}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Reused {
		metrics.IncInvoicesCreated()
	}
	u.audit.Record(ctx, "renewal.requested", map[string]any{
		"merchant_id":     merchantID,
		"subscription_id": result.Subscription.ID,
		"invoice_id":      result.Invoice.ID,
		"plan_changed":    planChanged,
	})
	return result, nil
}

func (u *renewalUC) resolveRenewable(ctx context.Context, merchantID string) (*model.Subscription, error) {
	sub, err := u.subs.FindCurrentByMerchant(ctx, repository.NoTX, merchantID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	sub, err = u.subs.FindLatestExpiredByMerchant(ctx, repository.NoTX, merchantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoSubscription
		}
		return nil, err
	}
	return sub, nil
}

func (u *renewalUC) resolveRenewalPlan(ctx context.Context, sub *model.Subscription, newPlanID string) (*model.Plan, error) {
	planID := sub.PlanID
	if newPlanID != "" {
		planID = newPlanID
	}
	if planID == "" {
		return nil, domain.ErrNotRenewable
	}
	plan, err := u.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, domain.ErrPlanInactive
	}
	return plan, nil
}

// renewability returns an empty string when the subscription may renew, or
// the reason it may not. Trials never renew; active subscriptions only close
// to their end; expired ones only within the grace window.
func (u *renewalUC) renewability(sub *model.Subscription, now time.Time) string {
	if sub.IsTrial {
		return "trial subscriptions cannot be renewed"
	}
	switch sub.Status {
	case model.SubscriptionStatusActive:
		if sub.EndAt == nil {
			return "subscription has no billing period"
		}
		if sub.EndAt.Before(now) {
			// Past EndAt but not yet swept: treat as expired.
			return u.expiredRenewability(sub, now)
		}
		if sub.EndAt.Sub(now) > renewActiveWindowDays*24*time.Hour {
			return fmt.Sprintf("renewable only within %d days of expiry", renewActiveWindowDays)
		}
		return ""
	case model.SubscriptionStatusExpired:
		return u.expiredRenewability(sub, now)
	default:
		return "subscription is not in a renewable state"
	}
}

func (u *renewalUC) expiredRenewability(sub *model.Subscription, now time.Time) string {
	if sub.EndAt == nil {
		return "subscription has no billing period"
	}
	if now.Sub(*sub.EndAt) > renewExpiredGraceDays*24*time.Hour {
		return fmt.Sprintf("renewal window closed %d days after expiry", renewExpiredGraceDays)
	}
	return ""
}

func (u *renewalUC) Stats(ctx context.Context, merchantID string) (*RenewalStats, error) {
	sub, err := u.resolveRenewable(ctx, merchantID)
	if err != nil {
		if errors.Is(err, domain.ErrNoSubscription) {
			return &RenewalStats{RenewalReason: "no subscription"}, nil
		}
		return nil, err
	}

	now := u.clock.Now()
	stats := &RenewalStats{Subscription: sub}
	reason := u.renewability(sub, now)
	stats.Renewable = reason == ""
	stats.RenewalReason = reason
	if sub.EndAt != nil && sub.EndAt.After(now) {
		stats.DaysUntilEnd = int(sub.EndAt.Sub(now) / (24 * time.Hour))
	}
	if sub.PlanID != "" {
		if plan, err := u.plans.FindByID(ctx, repository.NoTX, sub.PlanID); err == nil {
			stats.Plan = plan
		}
	}
	if inv, err := u.invoices.FindOpenBySubscription(ctx, repository.NoTX, sub.ID, now); err == nil {
		stats.OpenInvoice = inv
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return stats, nil
}

func (u *renewalUC) History(ctx context.Context, merchantID string) ([]RenewalHistoryEntry, error) {
	subs, err := u.subs.ListPaidByMerchant(ctx, repository.NoTX, merchantID)
	if err != nil {
		return nil, err
	}
	entries := make([]RenewalHistoryEntry, 0, len(subs))
	for _, sub := range subs {
		entry := RenewalHistoryEntry{Subscription: sub}
		if sub.PlanID != "" {
			if plan, err := u.plans.FindByID(ctx, repository.NoTX, sub.PlanID); err == nil {
				entry.Plan = plan
			}
		}
		total, paid, err := u.invoices.SumPaidBySubscription(ctx, repository.NoTX, sub.ID)
		if err != nil {
			return nil, err
		}
		entry.TotalPaid = total
		entry.PaidInvoices = paid
		entries = append(entries, entry)
	}
	return entries, nil
}

func (u *renewalUC) AvailablePlans(ctx context.Context) ([]*model.Plan, error) {
	return u.plans.ListActive(ctx, repository.NoTX)
}
