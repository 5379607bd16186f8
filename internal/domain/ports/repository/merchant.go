package repository

import (
	"context"

	"pos-license-platform/internal/domain/model"
)

// MerchantRepository is the port for merchant accounts.
type MerchantRepository interface {
	Save(ctx context.Context, tx Tx, m *model.Merchant) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Merchant, error)
	// MarkTrialUsed consumes the one-shot trial_used flag, returning
	// ErrTrialAlreadyUsed when it was consumed before. The flag is never
	// reset.
	MarkTrialUsed(ctx context.Context, tx Tx, id string) error
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.MerchantStatus) error
}
