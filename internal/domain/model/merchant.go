package model

import (
	"time"

	"pos-license-platform/internal/domain"
)

type MerchantStatus string

const (
	MerchantStatusActive    MerchantStatus = "active"
	MerchantStatusSuspended MerchantStatus = "suspended"
)

// Merchant is a tenant business account. It owns devices, subscriptions,
// invoices and license tokens. TrialUsed flips false->true exactly once and
// is never reset.
type Merchant struct {
	ID        string // UUID
	Name      string
	Email     string
	Status    MerchantStatus
	TrialUsed bool
	CreatedAt time.Time
}

func NewMerchant(id, name, email string, now time.Time) (*Merchant, error) {
	if id == "" || name == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Merchant{
		ID:        id,
		Name:      name,
		Email:     email,
		Status:    MerchantStatusActive,
		CreatedAt: now,
	}, nil
}

func (m *Merchant) IsActive() bool { return m.Status == MerchantStatusActive }

func (m *Merchant) HasUsedTrial() bool { return m.TrialUsed }
