package repository

import (
	"context"
	"time"

	"pos-license-platform/internal/domain/model"
)

// SubscriptionRepository is the port for merchant subscriptions.
// Subscriptions are created by checkout/trial, mutated by payment approval
// and the renewal scanner, and never deleted.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	// FindCurrentByMerchant returns the newest subscription in
	// {pending, active}, the one checkout must reuse or supersede.
	FindCurrentByMerchant(ctx context.Context, tx Tx, merchantID string) (*model.Subscription, error)
	// FindLatestByMerchant returns the newest subscription regardless of
	// status. Refresh uses this deliberately so expiry is detected and
	// reported instead of silently falling back.
	FindLatestByMerchant(ctx context.Context, tx Tx, merchantID string) (*model.Subscription, error)
	FindLatestExpiredByMerchant(ctx context.Context, tx Tx, merchantID string) (*model.Subscription, error)
	FindTrialByMerchant(ctx context.Context, tx Tx, merchantID string) (*model.Subscription, error)
	// ListExpiringWithin returns non-trial active subscriptions whose EndAt
	// falls in (now, now+days].
	ListExpiringWithin(ctx context.Context, tx Tx, now time.Time, days int) ([]*model.Subscription, error)
	// ListOverdue returns active subscriptions with EndAt before now.
	ListOverdue(ctx context.Context, tx Tx, now time.Time) ([]*model.Subscription, error)
	// ListExpiredTrials returns active trials with TrialEndAt before now.
	ListExpiredTrials(ctx context.Context, tx Tx, now time.Time) ([]*model.Subscription, error)
	// ListPaidByMerchant returns non-trial subscriptions, newest first, for
	// renewal history.
	ListPaidByMerchant(ctx context.Context, tx Tx, merchantID string) ([]*model.Subscription, error)
}
