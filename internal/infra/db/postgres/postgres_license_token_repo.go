// File: internal/infra/db/postgres/postgres_license_token_repo.go
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"pos-license-platform/internal/domain"
	"pos-license-platform/internal/domain/model"
	"pos-license-platform/internal/domain/ports/repository"
)

// Ensure licenseTokenRepo implements repository.LicenseTokenRepository
var _ repository.LicenseTokenRepository = (*licenseTokenRepo)(nil)

const tokenColumns = `id, merchant_id, device_id, subscription_id, token_hash, plain_token, expires_at, revoked_at, last_refreshed_at, created_at`

type licenseTokenRepo struct {
	pool *pgxpool.Pool
}

func NewLicenseTokenRepo(pool *pgxpool.Pool) *licenseTokenRepo {
	return &licenseTokenRepo{pool: pool}
}

func (r *licenseTokenRepo) Save(ctx context.Context, tx repository.Tx, t *model.LicenseToken) error {
	const q = `
INSERT INTO license_tokens (
  id, merchant_id, device_id, subscription_id, token_hash, plain_token, expires_at, revoked_at, last_refreshed_at, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  revoked_at=$8, last_refreshed_at=$9;`

	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.MerchantID, t.DeviceID, t.SubscriptionID, t.TokenHash, t.PlainToken, t.ExpiresAt, t.RevokedAt, t.LastRefreshedAt, t.CreatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			if isUniqueViolation(err) {
				return domain.ErrAlreadyExists
			}
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *licenseTokenRepo) FindLiveByDevice(ctx context.Context, tx repository.Tx, deviceID string, now time.Time) (*model.LicenseToken, error) {
	const q = `
SELECT ` + tokenColumns + `
  FROM license_tokens
 WHERE device_id=$1 AND revoked_at IS NULL AND expires_at > $2
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, deviceID, now)
}

func (r *licenseTokenRepo) FindLiveByDeviceAndHash(ctx context.Context, tx repository.Tx, deviceID, tokenHash string, now time.Time) (*model.LicenseToken, error) {
	const q = `
SELECT ` + tokenColumns + `
  FROM license_tokens
 WHERE device_id=$1 AND token_hash=$2 AND revoked_at IS NULL AND expires_at > $3
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, deviceID, tokenHash, now)
}

func (r *licenseTokenRepo) FindLatestByDeviceAndSubscription(ctx context.Context, tx repository.Tx, deviceID, subscriptionID string) (*model.LicenseToken, error) {
	const q = `
SELECT ` + tokenColumns + `
  FROM license_tokens
 WHERE device_id=$1 AND subscription_id=$2 AND revoked_at IS NULL
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, deviceID, subscriptionID)
}

func (r *licenseTokenRepo) RevokeLiveByDevice(ctx context.Context, tx repository.Tx, deviceID string, revokedAt time.Time) (int, error) {
	const q = `
UPDATE license_tokens
   SET revoked_at=$2
 WHERE device_id=$1 AND revoked_at IS NULL AND expires_at > $2;`
	return r.revoke(ctx, tx, q, deviceID, revokedAt)
}

func (r *licenseTokenRepo) RevokeAllByMerchant(ctx context.Context, tx repository.Tx, merchantID string, revokedAt time.Time) (int, error) {
	const q = `
UPDATE license_tokens
   SET revoked_at=$2
 WHERE merchant_id=$1 AND revoked_at IS NULL;`
	return r.revoke(ctx, tx, q, merchantID, revokedAt)
}

func (r *licenseTokenRepo) RevokeAllBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string, revokedAt time.Time) (int, error) {
	const q = `
UPDATE license_tokens
   SET revoked_at=$2
 WHERE subscription_id=$1 AND revoked_at IS NULL;`
	return r.revoke(ctx, tx, q, subscriptionID, revokedAt)
}

func (r *licenseTokenRepo) RevokeExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `
UPDATE license_tokens
   SET revoked_at=$1
 WHERE revoked_at IS NULL AND expires_at < $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return 0, err
		default:
			return 0, domain.ErrOperationFailed
		}
	}
	return int(tag.RowsAffected()), nil
}

func (r *licenseTokenRepo) CountLiveByMerchant(ctx context.Context, tx repository.Tx, merchantID string, now time.Time) (int, error) {
	const q = `
SELECT COUNT(*)
  FROM license_tokens
 WHERE merchant_id=$1 AND revoked_at IS NULL AND expires_at > $2;`
	row, err := pickRow(ctx, r.pool, tx, q, merchantID, now)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *licenseTokenRepo) revoke(ctx context.Context, tx repository.Tx, q string, scopeID string, revokedAt time.Time) (int, error) {
	tag, err := execSQL(ctx, r.pool, tx, q, scopeID, revokedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return 0, err
		default:
			return 0, domain.ErrOperationFailed
		}
	}
	return int(tag.RowsAffected()), nil
}

func (r *licenseTokenRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...any) (*model.LicenseToken, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}

	t := &model.LicenseToken{}
	if err := row.Scan(&t.ID, &t.MerchantID, &t.DeviceID, &t.SubscriptionID, &t.TokenHash, &t.PlainToken, &t.ExpiresAt, &t.RevokedAt, &t.LastRefreshedAt, &t.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return t, nil
}
