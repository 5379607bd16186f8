package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"pos-license-platform/internal/domain"
)

// LicenseToken is a signed, time-bounded authorization for one device under
// one subscription. The signed value is persisted both literally (returned to
// the caller) and as a SHA-256 hash used for revocation lookups. Tokens are
// revoked, never deleted.
//
// Invariant: at most one non-revoked, non-expired token exists per device.
type LicenseToken struct {
	ID              string // UUID
	MerchantID      string
	DeviceID        string
	SubscriptionID  string
	TokenHash       string
	PlainToken      string
	ExpiresAt       time.Time
	RevokedAt       *time.Time
	LastRefreshedAt time.Time
	CreatedAt       time.Time
}

func NewLicenseToken(id, merchantID, deviceID, subscriptionID, signed string, expiresAt, now time.Time) (*LicenseToken, error) {
	if id == "" || merchantID == "" || deviceID == "" || signed == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &LicenseToken{
		ID:              id,
		MerchantID:      merchantID,
		DeviceID:        deviceID,
		SubscriptionID:  subscriptionID,
		TokenHash:       HashToken(signed),
		PlainToken:      signed,
		ExpiresAt:       expiresAt,
		LastRefreshedAt: now,
		CreatedAt:       now,
	}, nil
}

// HashToken is the canonical hash used for revocation lookups.
func HashToken(signed string) string {
	sum := sha256.Sum256([]byte(signed))
	return hex.EncodeToString(sum[:])
}

func (t *LicenseToken) IsRevoked() bool { return t.RevokedAt != nil }

func (t *LicenseToken) IsExpired(now time.Time) bool { return t.ExpiresAt.Before(now) }

// IsLive reports a token that still authorizes its device.
func (t *LicenseToken) IsLive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}
