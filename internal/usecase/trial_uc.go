// File: internal/usecase/trial_uc.go
package usecase

import (
	"context"
	"errors"
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
var _ TrialUseCase = (*trialUC)(nil)

// tokenMinter is the slice of the license use case the trial engine needs:
// minting must happen inside the trial's own transaction so that a failed
// mint never leaves trial_used set without a subscription.
type tokenMinter interface {
	MintWithinTx(ctx context.Context, tx repository.Tx, merchant *model.Merchant, device *model.Device, sub *model.Subscription, extraClaims map[string]any) (*model.LicenseToken, error)
	RevokeAllWithinTx(ctx context.Context, tx repository.Tx, merchantID string) (int, error)
}

type TrialUseCase interface {
	// StartTrial creates the one-per-merchant trial subscription and mints
	// its token, all-or-nothing.
	StartTrial(ctx context.Context, merchantID, deviceUID, planID string) (*model.Subscription, *model.LicenseToken, error)
	// TrialStats reports eligibility and expiry state without mutating.
	TrialStats(ctx context.Context, merchantID string) (*TrialStats, error)
	// ConvertTrialToPaid turns an unexpired trial into a pending paid
	// subscription on the given plan.
	ConvertTrialToPaid(ctx context.Context, merchantID, planID string) (*model.Subscription, error)
	// ExpireTrial expires one active trial and revokes the merchant's
	// tokens.
	ExpireTrial(ctx context.Context, subscriptionID string) error
	// BulkExpireTrials expires every active trial past its trial end,
	// continuing past per-item failures. Returns the count expired.
	BulkExpireTrials(ctx context.Context) (int, error)
}

type TrialStats struct {
	HasTrial         bool
	TrialUsed        bool
	EligibleForTrial bool
	SubscriptionID   string
	Status           model.SubscriptionStatus
	TrialStartedAt   *time.Time
	TrialEndAt       *time.Time
	DaysRemaining    int
	IsExpired        bool
	Plan             *model.Plan
}

type trialUC struct {
	merchants    repository.MerchantRepository
	devices      repository.DeviceRepository
	subs         repository.SubscriptionRepository
	plans        repository.PlanRepository
	minter       tokenMinter
	txm          repository.TransactionManager
	clock        adapter.Clock
	audit        adapter.AuditSink
	fallbackDays int
	log          *zerolog.Logger
}

func NewTrialUseCase(
	merchants repository.MerchantRepository,
	devices repository.DeviceRepository,
	subs repository.SubscriptionRepository,
	plans repository.PlanRepository,
	minter tokenMinter,
	txm repository.TransactionManager,
	clock adapter.Clock,
	audit adapter.AuditSink,
	fallbackDays int,
	logger *zerolog.Logger,
) *trialUC {
	l := logger.With().Str("component", "TrialUC").Logger()
	return &trialUC{
		merchants:    merchants,
		devices:      devices,
		subs:         subs,
		plans:        plans,
		minter:       minter,
		txm:          txm,
		clock:        clock,
		audit:        audit,
		fallbackDays: fallbackDays,
		log:          &l,
	}
}

func (u *trialUC) StartTrial(ctx context.Context, merchantID, deviceUID, planID string) (*model.Subscription, *model.LicenseToken, error) {
	merchant, err := u.merchants.FindByID(ctx, repository.NoTX, merchantID)
	if err != nil {
		return nil, nil, err
	}

	var plan *model.Plan
	if planID != "" {
		plan, err = u.plans.FindByID(ctx, repository.NoTX, planID)
		if err != nil {
			return nil, nil, err
		}
	}

	device, err := u.devices.FindByUID(ctx, repository.NoTX, merchantID, deviceUID)
	if err != nil {
		return nil, nil, err
	}

	if err := u.checkEligibility(ctx, repository.NoTX, merchant, device, plan); err != nil {
		return nil, nil, err
	}
	trialDays := u.trialDays(plan)

	var (
		sub   *model.Subscription
		token *model.LicenseToken
	)
	err = u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockMerchant(ctx, tx, merchantID); err != nil {
			return err
		}
		// Re-check under the lock: the unlocked pre-check races with a
		// concurrent start on the same merchant.
		merchant, err = u.merchants.FindByID(ctx, tx, merchantID)
		if err != nil {
			return err
		}
		if err := u.checkEligibility(ctx, tx, merchant, device, plan); err != nil {
			return err
		}
		if err := u.merchants.MarkTrialUsed(ctx, tx, merchant.ID); err != nil {
			return err
		}
		merchant.TrialUsed = true

		now := u.clock.Now()
		pid := ""
		if plan != nil {
			pid = plan.ID
		}
		sub, err = model.NewTrialSubscription(uuid.NewString(), merchant.ID, pid, trialDays, now)
		if err != nil {
			return err
		}
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return err
		}

		token, err = u.minter.MintWithinTx(ctx, tx, merchant, device, sub, map[string]any{
			"trial":            true,
			"trial_days":       trialDays,
			"trial_expires_at": sub.TrialEndAt.Format(time.RFC3339),
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.IncTrialsStarted()
	u.audit.Record(ctx, "trial.started", map[string]any{
		"merchant_id":     merchantID,
		"subscription_id": sub.ID,
		"trial_days":      trialDays,
	})
	return sub, token, nil
}

func (u *trialUC) checkEligibility(ctx context.Context, tx repository.Tx, merchant *model.Merchant, device *model.Device, plan *model.Plan) error {
	if !merchant.IsActive() {
		return domain.ErrMerchantInactive
	}
	if merchant.HasUsedTrial() {
		return domain.ErrTrialAlreadyUsed
	}
	if !device.BelongsTo(merchant.ID) {
		return domain.ErrDeviceNotOwned
	}
	if !device.IsActive {
		return domain.ErrDeviceInactive
	}

	if _, err := u.subs.FindCurrentByMerchant(ctx, tx, merchant.ID); err == nil {
		return domain.ErrSubscriptionExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	if plan != nil {
		if !plan.IsActive {
			return domain.ErrPlanInactive
		}
		if !plan.HasTrialPeriod() {
			return domain.ErrPlanNoTrial
		}
	}
	if u.trialDays(plan) <= 0 {
		return domain.ErrTrialDaysInvalid
	}
	return nil
}

func (u *trialUC) trialDays(plan *model.Plan) int {
	if plan != nil && plan.TrialDays > 0 {
		return plan.TrialDays
	}
	return u.fallbackDays
}

func (u *trialUC) TrialStats(ctx context.Context, merchantID string) (*TrialStats, error) {
	merchant, err := u.merchants.FindByID(ctx, repository.NoTX, merchantID)
	if err != nil {
		return nil, err
	}

	sub, err := u.subs.FindTrialByMerchant(ctx, repository.NoTX, merchantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &TrialStats{
				TrialUsed:        merchant.HasUsedTrial(),
				EligibleForTrial: !merchant.HasUsedTrial() && merchant.IsActive(),
			}, nil
		}
		return nil, err
	}

	now := u.clock.Now()
	stats := &TrialStats{
		HasTrial:       true,
		TrialUsed:      true,
		SubscriptionID: sub.ID,
		Status:         sub.Status,
		TrialStartedAt: sub.TrialStartedAt,
		TrialEndAt:     sub.TrialEndAt,
		DaysRemaining:  sub.TrialDaysRemaining(now),
		IsExpired:      sub.IsTrialExpired(now),
	}
	if sub.PlanID != "" {
		if plan, err := u.plans.FindByID(ctx, repository.NoTX, sub.PlanID); err == nil {
			stats.Plan = plan
		}
	}
	return stats, nil
}

func (u *trialUC) ConvertTrialToPaid(ctx context.Context, merchantID, planID string) (*model.Subscription, error) {
	sub, err := u.subs.FindTrialByMerchant(ctx, repository.NoTX, merchantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotTrial
		}
		return nil, err
	}
	now := u.clock.Now()
	if !sub.IsTrial {
		return nil, domain.ErrNotTrial
	}
	if sub.IsTrialExpired(now) {
		return nil, domain.ErrTrialExpired
	}

	plan, err := u.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, domain.ErrPlanInactive
	}

	err = u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockMerchant(ctx, tx, merchantID); err != nil {
			return err
		}
		// Paid period starts fresh; payment is still outstanding.
		start := now
		end := now.AddDate(0, 0, plan.DurationDays)
		sub.PlanID = plan.ID
		sub.IsTrial = false
		sub.StartAt = &start
		sub.EndAt = &end
		sub.TrialEndAt = nil
		sub.Status = model.SubscriptionStatusPending
		return u.subs.Save(ctx, tx, sub)
	})
	if err != nil {
		return nil, err
	}
	u.audit.Record(ctx, "trial.converted", map[string]any{
		"merchant_id":     merchantID,
		"subscription_id": sub.ID,
		"plan_id":         plan.ID,
	})
	return sub, nil
}

func (u *trialUC) ExpireTrial(ctx context.Context, subscriptionID string) error {
	sub, err := u.subs.FindByID(ctx, repository.NoTX, subscriptionID)
	if err != nil {
		return err
	}
	if !sub.IsTrial {
		return domain.ErrNotTrial
	}

	err = u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockMerchant(ctx, tx, sub.MerchantID); err != nil {
			return err
		}
		sub.Status = model.SubscriptionStatusExpired
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return err
		}
		// Revocation rides the same transaction so an expired trial can
		// never keep a live token.
		_, err := u.minter.RevokeAllWithinTx(ctx, tx, sub.MerchantID)
		return err
	})
	if err != nil {
		return err
	}
	metrics.IncSubscriptionsExpired(1)
	u.audit.Record(ctx, "trial.expired", map[string]any{
		"merchant_id":     sub.MerchantID,
		"subscription_id": sub.ID,
	})
	return nil
}

func (u *trialUC) BulkExpireTrials(ctx context.Context) (int, error) {
	trials, err := u.subs.ListExpiredTrials(ctx, repository.NoTX, u.clock.Now())
	if err != nil {
		return 0, err
	}
	count := 0
	for _, trial := range trials {
		if err := u.ExpireTrial(ctx, trial.ID); err != nil {
			// Per-item failure; keep processing the rest of the batch.
			u.log.Error().Err(err).
				Str("subscription_id", trial.ID).
				Str("merchant_id", trial.MerchantID).
				Msg("failed to expire trial subscription")
			continue
		}
		count++
	}
	return count, nil
}
