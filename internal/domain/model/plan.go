package model

import (
	"time"

	"pos-license-platform/internal/domain"
)

// Plan is a priced subscription template. Price is in minor currency units.
// TrialDays of 0 means the plan carries no trial period. Once an active
// subscription references a plan, edits only affect future subscriptions.
type Plan struct {
	ID           string // UUID
	Name         string
	Code         string
	Description  string
	Price        int64
	Currency     string
	DurationDays int
	TrialDays    int
	IsActive     bool
	CreatedAt    time.Time
}

func NewPlan(id, name, code string, price int64, currency string, durationDays, trialDays int, now time.Time) (*Plan, error) {
	if id == "" || name == "" || code == "" || price < 0 || durationDays <= 0 || trialDays < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:           id,
		Name:         name,
		Code:         code,
		Price:        price,
		Currency:     currency,
		DurationDays: durationDays,
		TrialDays:    trialDays,
		IsActive:     true,
		CreatedAt:    now,
	}, nil
}

func (p *Plan) HasTrialPeriod() bool { return p.TrialDays > 0 }
