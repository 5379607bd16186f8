// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"pos-license-platform/internal/domain"
	"pos-license-platform/internal/domain/model"
	"pos-license-platform/internal/domain/ports/adapter"
	"pos-license-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type SubscriptionUseCase interface {
	// Status is the read-only merchant dashboard query.
	Status(ctx context.Context, merchantID string) (*SubscriptionStatus, error)
}

type SubscriptionStatus struct {
	Merchant      *model.Merchant
	Subscription  *model.Subscription
	Plan          *model.Plan
	OpenInvoice   *model.Invoice
	LiveTokens    int
	ActiveDevices int
	DaysRemaining int
	Expired       bool
}

type subscriptionUC struct {
	merchants repository.MerchantRepository
	plans     repository.PlanRepository
	devices   repository.DeviceRepository
	subs      repository.SubscriptionRepository
	invoices  repository.InvoiceRepository
	tokens    repository.LicenseTokenRepository
	clock     adapter.Clock
	log       *zerolog.Logger
}

func NewSubscriptionUseCase(
	merchants repository.MerchantRepository,
	plans repository.PlanRepository,
	devices repository.DeviceRepository,
	subs repository.SubscriptionRepository,
	invoices repository.InvoiceRepository,
	tokens repository.LicenseTokenRepository,
	clock adapter.Clock,
	logger *zerolog.Logger,
) *subscriptionUC {
	l := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{
		merchants: merchants,
		plans:     plans,
		devices:   devices,
		subs:      subs,
		invoices:  invoices,
		tokens:    tokens,
		clock:     clock,
		log:       &l,
	}
}

func (u *subscriptionUC) Status(ctx context.Context, merchantID string) (*SubscriptionStatus, error) {
	merchant, err := u.merchants.FindByID(ctx, repository.NoTX, merchantID)
	if err != nil {
		return nil, err
	}
	now := u.clock.Now()
	status := &SubscriptionStatus{Merchant: merchant}

	devices, err := u.devices.ListActiveByMerchant(ctx, repository.NoTX, merchantID)
	if err != nil {
		return nil, err
	}
	status.ActiveDevices = len(devices)

	live, err := u.tokens.CountLiveByMerchant(ctx, repository.NoTX, merchantID, now)
	if err != nil {
		return nil, err
	}
	status.LiveTokens = live

	sub, err := u.subs.FindLatestByMerchant(ctx, repository.NoTX, merchantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return status, nil
		}
		return nil, err
	}
	status.Subscription = sub
	status.Expired = sub.IsExpired(now) || sub.IsTrialExpired(now)
	status.DaysRemaining = daysRemaining(sub, now)

	if sub.PlanID != "" {
		if plan, err := u.plans.FindByID(ctx, repository.NoTX, sub.PlanID); err == nil {
			status.Plan = plan
		}
	}
	if inv, err := u.invoices.FindOpenBySubscription(ctx, repository.NoTX, sub.ID, now); err == nil {
		status.OpenInvoice = inv
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return status, nil
}

func daysRemaining(sub *model.Subscription, now time.Time) int {
	if sub.IsTrial {
		return sub.TrialDaysRemaining(now)
	}
	if sub.EndAt == nil || sub.EndAt.Before(now) {
		return 0
	}
	return int(sub.EndAt.Sub(now) / (24 * time.Hour))
}
