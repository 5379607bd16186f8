// File: internal/infra/api/apiv1/license_handlers.go
package apiv1

import (
	"net/http"

	"pos-license-platform/internal/infra/metrics"
)

type issueLicenseRequest struct {
	DeviceID string `json:"device_id" validate:"required"`
}

func (s *Server) handleIssueLicense(w http.ResponseWriter, r *http.Request) {
	var req issueLicenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	token, err := s.licenses.Issue(r.Context(), merchantID(r), req.DeviceID, nil)
	if err != nil {
		respondUseCaseError(w, err)
		return
	}
	respondData(w, http.StatusCreated, toTokenView(token))
}

func (s *Server) handleRefreshLicense(w http.ResponseWriter, r *http.Request) {
	var req issueLicenseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	token, err := s.licenses.Refresh(r.Context(), merchantID(r), req.DeviceID)
	if err != nil {
		respondUseCaseError(w, err)
		return
	}
	respondData(w, http.StatusOK, toTokenView(token))
}

type validateTokenRequest struct {
	Token    string `json:"token" validate:"required"`
	DeviceID string `json:"device_id" validate:"required"`
}

func (s *Server) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	var req validateTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	claims, err := s.licenses.ValidateToken(r.Context(), req.Token, req.DeviceID)
	if err != nil {
		metrics.IncTokenValidation("invalid")
		respondUseCaseError(w, err)
		return
	}
	metrics.IncTokenValidation("valid")
	respondData(w, http.StatusOK, map[string]any{"valid": true, "claims": claims})
}

func (s *Server) handleCurrentLicense(w http.ResponseWriter, r *http.Request) {
	cur, err := s.licenses.CurrentLicense(r.Context(), merchantID(r))
	if err != nil {
		respondUseCaseError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]any{
		"token":        toTokenView(cur.Token),
		"device":       toDeviceView(cur.Device),
		"subscription": toSubscriptionView(cur.Subscription),
		"plan_code":    cur.PlanCode,
	})
}
