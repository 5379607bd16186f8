// File: internal/infra/db/postgres/postgres_device_repo.go
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

// Ensure deviceRepo implements repository.DeviceRepository
var _ repository.DeviceRepository = (*deviceRepo)(nil)

type deviceRepo struct {
	pool *pgxpool.Pool
}

func NewDeviceRepo(pool *pgxpool.Pool) *deviceRepo {
	return &deviceRepo{pool: pool}
}

func (r *deviceRepo) Save(ctx context.Context, tx repository.Tx, d *model.Device) error {
	const q = `
INSERT INTO devices (
  id, merchant_id, device_uid, label, is_active, last_seen_at, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  label=$4, is_active=$5, last_seen_at=$6;`

	_, err := execSQL(ctx, r.pool, tx, q, d.ID, d.MerchantID, d.DeviceUID, d.Label, d.IsActive, d.LastSeenAt, d.CreatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			// (merchant_id, device_uid) carries a unique index.
			if isUniqueViolation(err) {
				return domain.ErrAlreadyExists
			}
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *deviceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Device, error) {
	const q = `
SELECT id, merchant_id, device_uid, label, is_active, last_seen_at, created_at
  FROM devices
 WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *deviceRepo) FindByUID(ctx context.Context, tx repository.Tx, merchantID, deviceUID string) (*model.Device, error) {
	const q = `
SELECT id, merchant_id, device_uid, label, is_active, last_seen_at, created_at
  FROM devices
 WHERE merchant_id=$1 AND device_uid=$2;`
	return r.queryOne(ctx, tx, q, merchantID, deviceUID)
}

func (r *deviceRepo) ListActiveByMerchant(ctx context.Context, tx repository.Tx, merchantID string) ([]*model.Device, error) {
	const q = `
SELECT id, merchant_id, device_uid, label, is_active, last_seen_at, created_at
  FROM devices
 WHERE merchant_id=$1 AND is_active=TRUE
 ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, merchantID)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	var out []*model.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *deviceRepo) FindLatestActiveByMerchant(ctx context.Context, tx repository.Tx, merchantID string) (*model.Device, error) {
	const q = `
SELECT id, merchant_id, device_uid, label, is_active, last_seen_at, created_at
  FROM devices
 WHERE merchant_id=$1 AND is_active=TRUE
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, merchantID)
}

func (r *deviceRepo) UpdateLastSeen(ctx context.Context, tx repository.Tx, id string, seenAt time.Time) error {
	const q = `UPDATE devices SET last_seen_at=$2 WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, seenAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *deviceRepo) queryOne(ctx context.Context, tx repository.Tx, sql string, args ...any) (*model.Device, error) {
	row, err := pickRow(ctx, r.pool, tx, sql, args...)
	if err != nil {
		return nil, err
	}

	d := &model.Device{}
	if err := row.Scan(&d.ID, &d.MerchantID, &d.DeviceUID, &d.Label, &d.IsActive, &d.LastSeenAt, &d.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return d, nil
}

func scanDevice(rows pgx.Rows) (*model.Device, error) {
	d := &model.Device{}
	if err := rows.Scan(&d.ID, &d.MerchantID, &d.DeviceUID, &d.Label, &d.IsActive, &d.LastSeenAt, &d.CreatedAt); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return d, nil
}
