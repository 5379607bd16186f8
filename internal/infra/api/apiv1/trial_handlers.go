// File: internal/infra/api/apiv1/trial_handlers.go
package apiv1

import (
	"net/http"
	"time"
)

type startTrialRequest struct {
	DeviceUID string `json:"device_uid" validate:"required"`
	PlanID    string `json:"plan_id"`
}

func (s *Server) handleStartTrial(w http.ResponseWriter, r *http.Request) {
	var req startTrialRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sub, token, err := s.trials.StartTrial(r.Context(), merchantID(r), req.DeviceUID, req.PlanID)
	if err != nil {
		respondUseCaseError(w, err)
		return
	}
	respondData(w, http.StatusCreated, map[string]any{
		"subscription": toSubscriptionView(sub),
		"token":        toTokenView(token),
	})
}

type trialStatusView struct {
	HasTrial         bool       `json:"has_trial"`
	TrialUsed        bool       `json:"trial_used"`
	EligibleForTrial bool       `json:"eligible_for_trial"`
	SubscriptionID   string     `json:"subscription_id,omitempty"`
	Status           string     `json:"status,omitempty"`
	TrialStartedAt   *time.Time `json:"trial_started_at,omitempty"`
	TrialEndAt       *time.Time `json:"trial_end_at,omitempty"`
	DaysRemaining    int        `json:"days_remaining"`
	IsExpired        bool       `json:"is_expired"`
	Plan             *planView  `json:"plan,omitempty"`
}

func (s *Server) handleTrialStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.trials.TrialStats(r.Context(), merchantID(r))
	if err != nil {
		respondUseCaseError(w, err)
		return
	}
	respondData(w, http.StatusOK, trialStatusView{
		HasTrial:         stats.HasTrial,
		TrialUsed:        stats.TrialUsed,
		EligibleForTrial: stats.EligibleForTrial,
		SubscriptionID:   stats.SubscriptionID,
		Status:           string(stats.Status),
		TrialStartedAt:   stats.TrialStartedAt,
		TrialEndAt:       stats.TrialEndAt,
		DaysRemaining:    stats.DaysRemaining,
		IsExpired:        stats.IsExpired,
		Plan:             toPlanView(stats.Plan),
	})
}

type convertTrialRequest struct {
	PlanID string `json:"plan_id" validate:"required"`
}

func (s *Server) handleConvertTrial(w http.ResponseWriter, r *http.Request) {
	var req convertTrialRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sub, err := s.trials.ConvertTrialToPaid(r.Context(), merchantID(r), req.PlanID)
	if err != nil {
		respondUseCaseError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "Trial converted; awaiting payment", toSubscriptionView(sub))
}
