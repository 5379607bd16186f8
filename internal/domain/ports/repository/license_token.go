package repository

import (
	"context"
	"time"

	"pos-license-platform/internal/domain/model"
)

// LicenseTokenRepository is the port for signed device tokens. Tokens are
// marked revoked in place and kept for audit; nothing deletes them.
type LicenseTokenRepository interface {
	Save(ctx context.Context, tx Tx, t *model.LicenseToken) error
	// FindLiveByDevice returns the single non-revoked, non-expired token for
	// a device, or ErrNotFound.
	FindLiveByDevice(ctx context.Context, tx Tx, deviceID string, now time.Time) (*model.LicenseToken, error)
	// FindLiveByDeviceAndHash is the revocation-aware lookup used by token
	// validation.
	FindLiveByDeviceAndHash(ctx context.Context, tx Tx, deviceID, tokenHash string, now time.Time) (*model.LicenseToken, error)
	// FindLatestByDeviceAndSubscription returns the newest non-revoked token
	// regardless of expiry, used by the current-license query.
	FindLatestByDeviceAndSubscription(ctx context.Context, tx Tx, deviceID, subscriptionID string) (*model.LicenseToken, error)
	// RevokeLiveByDevice enforces the single-active-token invariant before a
	// mint. Returns the count revoked.
	RevokeLiveByDevice(ctx context.Context, tx Tx, deviceID string, revokedAt time.Time) (int, error)
	RevokeAllByMerchant(ctx context.Context, tx Tx, merchantID string, revokedAt time.Time) (int, error)
	RevokeAllBySubscription(ctx context.Context, tx Tx, subscriptionID string, revokedAt time.Time) (int, error)
	// RevokeExpired marks every expired, not-yet-revoked token revoked.
	// Idempotent; returns the count affected.
	RevokeExpired(ctx context.Context, tx Tx, now time.Time) (int, error)
	CountLiveByMerchant(ctx context.Context, tx Tx, merchantID string, now time.Time) (int, error)
}
