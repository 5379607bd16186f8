package repository

import (
	"context"
	"time"

	"pos-license-platform/internal/domain/model"
)

// DeviceRepository is the port for POS devices.
type DeviceRepository interface {
	Save(ctx context.Context, tx Tx, d *model.Device) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Device, error)
	// FindByUID resolves the device a terminal identifies itself as, scoped
	// to its merchant.
	FindByUID(ctx context.Context, tx Tx, merchantID, deviceUID string) (*model.Device, error)
	ListActiveByMerchant(ctx context.Context, tx Tx, merchantID string) ([]*model.Device, error)
	// FindLatestActiveByMerchant returns the most recently created active
	// device, used when a call carries no device scope.
	FindLatestActiveByMerchant(ctx context.Context, tx Tx, merchantID string) (*model.Device, error)
	UpdateLastSeen(ctx context.Context, tx Tx, id string, seenAt time.Time) error
}
