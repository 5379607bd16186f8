package model

import (
	"time"

	"pos-license-platform/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// Subscription is the central billing/licensing state machine for a
// merchant. A merchant holds at most one subscription in {pending, active}
// at any time: checkout reuses or supersedes the existing one, never creates
// a second.
//
// Trial subscriptions carry TrialStartedAt/TrialEndAt and no plan-billing
// EndAt until converted to paid.
type Subscription struct {
	ID               string // UUID
	MerchantID       string
	PlanID           string // empty for plan-less trials
	Status           SubscriptionStatus
	IsTrial          bool
	StartAt          *time.Time
	EndAt            *time.Time
	TrialStartedAt   *time.Time
	TrialEndAt       *time.Time
	CurrentInvoiceID string
	CreatedAt        time.Time
}

// NewPendingSubscription creates a non-trial subscription awaiting its first
// payment. StartAt/EndAt stay nil until activation.
func NewPendingSubscription(id, merchantID, planID, invoiceID string, now time.Time) (*Subscription, error) {
	if id == "" || merchantID == "" || planID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:               id,
		MerchantID:       merchantID,
		PlanID:           planID,
		Status:           SubscriptionStatusPending,
		CurrentInvoiceID: invoiceID,
		CreatedAt:        now,
	}, nil
}

// NewTrialSubscription creates an immediately active trial. TrialEndAt is the
// end of the calendar day trialDays from now.
func NewTrialSubscription(id, merchantID, planID string, trialDays int, now time.Time) (*Subscription, error) {
	if id == "" || merchantID == "" || trialDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	start := now
	trialEnd := EndOfDay(now.AddDate(0, 0, trialDays))
	return &Subscription{
		ID:             id,
		MerchantID:     merchantID,
		PlanID:         planID,
		Status:         SubscriptionStatusActive,
		IsTrial:        true,
		StartAt:        &start,
		TrialStartedAt: &start,
		TrialEndAt:     &trialEnd,
		CreatedAt:      now,
	}, nil
}

// EndOfDay snaps t to the last instant of its calendar day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

func (s *Subscription) IsActive() bool    { return s.Status == SubscriptionStatusActive }
func (s *Subscription) IsPending() bool   { return s.Status == SubscriptionStatusPending }
func (s *Subscription) IsCancelled() bool { return s.Status == SubscriptionStatusCancelled }

// IsExpired reports whether the subscription is past its paid period. The
// stored status alone is not trusted: an active subscription whose EndAt has
// passed but which the sweep has not yet visited still counts as expired.
func (s *Subscription) IsExpired(now time.Time) bool {
	if s.Status == SubscriptionStatusExpired {
		return true
	}
	return !s.IsTrial && s.EndAt != nil && s.EndAt.Before(now)
}

func (s *Subscription) IsTrialExpired(now time.Time) bool {
	return s.IsTrial && s.TrialEndAt != nil && s.TrialEndAt.Before(now)
}

// TrialDaysRemaining is the number of whole days until the trial ends, never
// negative.
func (s *Subscription) TrialDaysRemaining(now time.Time) int {
	if !s.IsTrial || s.TrialEndAt == nil || s.TrialEndAt.Before(now) {
		return 0
	}
	return int(s.TrialEndAt.Sub(now) / (24 * time.Hour))
}
