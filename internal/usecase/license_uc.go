// File: internal/usecase/license_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
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
var _ LicenseUseCase = (*licenseUC)(nil)

// LicenseUseCase mints, refreshes, verifies and revokes signed device
// tokens. All mutations keep the single-live-token-per-device invariant.
type LicenseUseCase interface {
	// Issue mints a token for the device under the merchant's current
	// subscription, revoking any live token for the device first.
	Issue(ctx context.Context, merchantID, deviceID string, extraClaims map[string]any) (*model.LicenseToken, error)
	// Refresh rotates an existing live token. It deliberately resolves the
	// merchant's latest subscription regardless of status so that expiry is
	// reported rather than masked.
	Refresh(ctx context.Context, merchantID, deviceID string) (*model.LicenseToken, error)
	// ValidateToken verifies the signature, the stored record and the
	// device/merchant bindings, returning the decoded claims.
	ValidateToken(ctx context.Context, signed, deviceID string) (jwt.MapClaims, error)
	// CurrentLicense returns the newest non-revoked token for the
	// merchant's most recent active device.
	CurrentLicense(ctx context.Context, merchantID string) (*CurrentLicense, error)
	// RevokeAllMerchantTokens bulk-revokes every live token for a merchant;
	// invoked on suspension.
	RevokeAllMerchantTokens(ctx context.Context, merchantID string) (int, error)
	// CleanupExpiredTokens marks all expired, unrevoked tokens revoked.
	CleanupExpiredTokens(ctx context.Context) (int, error)
}

// CurrentLicense bundles the token with its subscription context for the
// get-current-license endpoint.
type CurrentLicense struct {
	Token        *model.LicenseToken
	Device       *model.Device
	Subscription *model.Subscription
	PlanCode     string
}

// PlanCodeTrial is the sentinel plan claim for trial subscriptions.
const PlanCodeTrial = "TRIAL"

type licenseUC struct {
	merchants repository.MerchantRepository
	devices   repository.DeviceRepository
	subs      repository.SubscriptionRepository
	tokens    repository.LicenseTokenRepository
	plans     repository.PlanRepository
	txm       repository.TransactionManager
	clock     adapter.Clock
	audit     adapter.AuditSink

	issuer  string
	secret  []byte
	maxLife time.Duration

	log *zerolog.Logger
}

// NewLicenseUseCase constructs the issuer. An empty signing secret is a
// configuration fault and fails construction; it is never a per-request
// error.
func NewLicenseUseCase(
	merchants repository.MerchantRepository,
	devices repository.DeviceRepository,
	subs repository.SubscriptionRepository,
	tokens repository.LicenseTokenRepository,
	plans repository.PlanRepository,
	txm repository.TransactionManager,
	clock adapter.Clock,
	audit adapter.AuditSink,
	issuer, secret string,
	maxTokenDays int,
	logger *zerolog.Logger,
) (*licenseUC, error) {
	if secret == "" {
		return nil, errors.New("license: signing secret is not configured")
	}
	if maxTokenDays <= 0 {
		maxTokenDays = 30
	}
	l := logger.With().Str("component", "LicenseUC").Logger()
	return &licenseUC{
		merchants: merchants,
		devices:   devices,
		subs:      subs,
		tokens:    tokens,
		plans:     plans,
		txm:       txm,
		clock:     clock,
		audit:     audit,
		issuer:    issuer,
		secret:    []byte(secret),
		maxLife:   time.Duration(maxTokenDays) * 24 * time.Hour,
		log:       &l,
	}, nil
}

func (u *licenseUC) Issue(ctx context.Context, merchantID, deviceID string, extraClaims map[string]any) (*model.LicenseToken, error) {
	merchant, device, err := u.loadActivePair(ctx, repository.NoTX, merchantID, deviceID)
	if err != nil {
		return nil, err
	}

	sub, err := u.subs.FindCurrentByMerchant(ctx, repository.NoTX, merchantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoSubscription
		}
		return nil, err
	}

	var token *model.LicenseToken
	err = u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockMerchant(ctx, tx, merchantID); err != nil {
			return err
		}
		token, err = u.MintWithinTx(ctx, tx, merchant, device, sub, extraClaims)
		return err
	})
	if err != nil {
		return nil, err
	}
	u.audit.Record(ctx, "license.issued", map[string]any{
		"merchant_id":     merchantID,
		"device_id":       deviceID,
		"subscription_id": sub.ID,
		"expires_at":      token.ExpiresAt,
	})
	return token, nil
}

// MintWithinTx revokes any live token for the device and mints a new one
// inside the caller's transaction. Trial start uses this directly so that a
// failed mint rolls the whole trial back.
func (u *licenseUC) MintWithinTx(ctx context.Context, tx repository.Tx, merchant *model.Merchant, device *model.Device, sub *model.Subscription, extraClaims map[string]any) (*model.LicenseToken, error) {
	if sub.MerchantID != merchant.ID {
		return nil, domain.ErrSubscriptionNotLinked
	}
	if sub.Status != model.SubscriptionStatusActive && sub.Status != model.SubscriptionStatusPending {
		return nil, domain.ErrNoSubscription
	}

	now := u.clock.Now()
	if _, err := u.tokens.RevokeLiveByDevice(ctx, tx, device.ID, now); err != nil {
		return nil, err
	}

	expiresAt := u.tokenExpiry(sub, now)
	signed, err := u.sign(ctx, merchant, device, sub, expiresAt, now, extraClaims)
	if err != nil {
		return nil, err
	}

	token, err := model.NewLicenseToken(uuid.NewString(), merchant.ID, device.ID, sub.ID, signed, expiresAt, now)
	if err != nil {
		return nil, err
	}
	if err := u.tokens.Save(ctx, tx, token); err != nil {
		return nil, err
	}
	if err := u.devices.UpdateLastSeen(ctx, tx, device.ID, now); err != nil {
		return nil, err
	}
	metrics.IncTokensIssued()
	return token, nil
}

func (u *licenseUC) Refresh(ctx context.Context, merchantID, deviceID string) (*model.LicenseToken, error) {
	merchant, device, err := u.loadActivePair(ctx, repository.NoTX, merchantID, deviceID)
	if err != nil {
		return nil, err
	}

	// Latest subscription in any state: an expired one must fail the
	// refresh, not fall through to an older active record.
	sub, err := u.subs.FindLatestByMerchant(ctx, repository.NoTX, merchantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoSubscription
		}
		return nil, err
	}

	now := u.clock.Now()
	if sub.IsExpired(now) || sub.IsTrialExpired(now) {
		return nil, domain.ErrSubscriptionExpired
	}

	if _, err := u.tokens.FindLiveByDevice(ctx, repository.NoTX, device.ID, now); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoActiveToken
		}
		return nil, err
	}

	var token *model.LicenseToken
	err = u.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := lockMerchant(ctx, tx, merchantID); err != nil {
			return err
		}
		token, err = u.MintWithinTx(ctx, tx, merchant, device, sub, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.IncTokensRefreshed()
	return token, nil
}

func (u *licenseUC) ValidateToken(ctx context.Context, signed, deviceID string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrTokenSignature
		}
		return u.secret, nil
	}, jwt.WithTimeFunc(u.clock.Now))
	if err != nil {
		return nil, domain.ErrTokenSignature
	}

	device, err := u.devices.FindByID(ctx, repository.NoTX, deviceID)
	if err != nil {
		return nil, err
	}

	now := u.clock.Now()
	if _, err := u.tokens.FindLiveByDeviceAndHash(ctx, repository.NoTX, device.ID, model.HashToken(signed), now); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTokenRevoked
		}
		return nil, err
	}

	if claims["device_id"] != device.ID || claims["merchant_id"] != device.MerchantID {
		return nil, domain.ErrTokenMismatch
	}

	merchant, err := u.merchants.FindByID(ctx, repository.NoTX, device.MerchantID)
	if err != nil {
		return nil, err
	}
	if !merchant.IsActive() {
		return nil, domain.ErrMerchantInactive
	}
	if !device.IsActive {
		return nil, domain.ErrDeviceInactive
	}
	return claims, nil
}

func (u *licenseUC) CurrentLicense(ctx context.Context, merchantID string) (*CurrentLicense, error) {
	merchant, err := u.merchants.FindByID(ctx, repository.NoTX, merchantID)
	if err != nil {
		return nil, err
	}
	if !merchant.IsActive() {
		return nil, domain.ErrMerchantInactive
	}

	device, err := u.devices.FindLatestActiveByMerchant(ctx, repository.NoTX, merchantID)
	if err != nil {
		return nil, err
	}
	sub, err := u.subs.FindCurrentByMerchant(ctx, repository.NoTX, merchantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoSubscription
		}
		return nil, err
	}
	token, err := u.tokens.FindLatestByDeviceAndSubscription(ctx, repository.NoTX, device.ID, sub.ID)
	if err != nil {
		return nil, err
	}
	return &CurrentLicense{
		Token:        token,
		Device:       device,
		Subscription: sub,
		PlanCode:     u.planCode(ctx, sub),
	}, nil
}

func (u *licenseUC) RevokeAllMerchantTokens(ctx context.Context, merchantID string) (int, error) {
	n, err := u.tokens.RevokeAllByMerchant(ctx, repository.NoTX, merchantID, u.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.AddTokensRevoked(n)
		u.log.Info().Str("merchant_id", merchantID).Int("count", n).Msg("revoked all merchant tokens")
		u.audit.Record(ctx, "license.revoked_all", map[string]any{"merchant_id": merchantID, "count": n})
	}
	return n, nil
}

// RevokeAllWithinTx bulk-revokes a merchant's live tokens inside a
// caller-owned transaction, so a status flip and its revocations commit
// together.
func (u *licenseUC) RevokeAllWithinTx(ctx context.Context, tx repository.Tx, merchantID string) (int, error) {
	n, err := u.tokens.RevokeAllByMerchant(ctx, tx, merchantID, u.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.AddTokensRevoked(n)
	}
	return n, nil
}

func (u *licenseUC) CleanupExpiredTokens(ctx context.Context) (int, error) {
	n, err := u.tokens.RevokeExpired(ctx, repository.NoTX, u.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.AddTokensRevoked(n)
	}
	return n, nil
}

// --- helpers ---

// loadActivePair resolves and gate-checks the merchant and device every
// token operation starts from.
func (u *licenseUC) loadActivePair(ctx context.Context, tx repository.Tx, merchantID, deviceID string) (*model.Merchant, *model.Device, error) {
	merchant, err := u.merchants.FindByID(ctx, tx, merchantID)
	if err != nil {
		return nil, nil, err
	}
	if !merchant.IsActive() {
		return nil, nil, domain.ErrMerchantInactive
	}
	device, err := u.devices.FindByID(ctx, tx, deviceID)
	if err != nil {
		return nil, nil, err
	}
	if !device.BelongsTo(merchant.ID) {
		return nil, nil, domain.ErrDeviceNotOwned
	}
	if !device.IsActive {
		return nil, nil, domain.ErrDeviceInactive
	}
	return merchant, device, nil
}

// tokenExpiry picks the token deadline: trial end for trials, paid period end
// otherwise, one day as the fallback, and never later than the configured
// hard cap from now (tokens must rotate at least monthly even on long
// subscriptions).
func (u *licenseUC) tokenExpiry(sub *model.Subscription, now time.Time) time.Time {
	var expiresAt time.Time
	switch {
	case sub.IsTrial && sub.TrialEndAt != nil:
		expiresAt = *sub.TrialEndAt
	case sub.EndAt != nil:
		expiresAt = *sub.EndAt
	default:
		expiresAt = now.Add(24 * time.Hour)
	}
	if maxExp := now.Add(u.maxLife); expiresAt.After(maxExp) {
		expiresAt = maxExp
	}
	return expiresAt
}

func (u *licenseUC) sign(ctx context.Context, merchant *model.Merchant, device *model.Device, sub *model.Subscription, expiresAt, now time.Time, extra map[string]any) (string, error) {
	nbf := now
	if sub.StartAt != nil {
		nbf = *sub.StartAt
	}
	claims := jwt.MapClaims{
		"iss": u.issuer,
		"sub": "license",
		"exp": expiresAt.Unix(),
		"nbf": nbf.Unix(),
		"iat": now.Unix(),
		"jti": uuid.NewString(),

		"merchant_id":         merchant.ID,
		"merchant_status":     string(merchant.Status),
		"device_id":           device.ID,
		"device_uid":          device.DeviceUID,
		"plan":                u.planCode(ctx, sub),
		"trial":               sub.IsTrial,
		"subscription_id":     sub.ID,
		"subscription_status": string(sub.Status),
	}
	for k, v := range extra {
		claims[k] = v
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(u.secret)
}

func (u *licenseUC) planCode(ctx context.Context, sub *model.Subscription) string {
	if sub.IsTrial {
		return PlanCodeTrial
	}
	plan, err := u.plans.FindByID(ctx, repository.NoTX, sub.PlanID)
	if err != nil {
		u.log.Warn().Err(err).Str("plan_id", sub.PlanID).Msg("plan lookup for claim failed")
		return ""
	}
	return plan.Code
}
