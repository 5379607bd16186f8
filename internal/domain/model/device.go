package model

import (
	"time"

	"pos-license-platform/internal/domain"
)

// Device is a POS endpoint. DeviceUID is unique per merchant and supplied by
// the terminal itself.
type Device struct {
	ID         string // UUID
	MerchantID string
	DeviceUID  string
	Label      string
	IsActive   bool
	LastSeenAt *time.Time
	CreatedAt  time.Time
}

func NewDevice(id, merchantID, deviceUID string, now time.Time) (*Device, error) {
	if id == "" || merchantID == "" || deviceUID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Device{
		ID:         id,
		MerchantID: merchantID,
		DeviceUID:  deviceUID,
		Label:      defaultDeviceLabel(deviceUID),
		IsActive:   true,
		LastSeenAt: &now,
		CreatedAt:  now,
	}, nil
}

// defaultDeviceLabel derives a label from the UID tail so new devices are
// distinguishable in listings without operator input.
func defaultDeviceLabel(uid string) string {
	if len(uid) > 8 {
		uid = uid[len(uid)-8:]
	}
	return "Device " + uid
}

func (d *Device) BelongsTo(merchantID string) bool { return d.MerchantID == merchantID }
