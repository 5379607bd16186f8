// File: internal/infra/api/apiv1/checkout_handlers.go
package apiv1

import (
	"net/http"
)

type startCheckoutRequest struct {
	PlanID    string `json:"plan_id" validate:"required"`
	DeviceUID string `json:"device_uid" validate:"required"`
}

func (s *Server) handleStartCheckout(w http.ResponseWriter, r *http.Request) {
	var req startCheckoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.checkout.Start(r.Context(), merchantID(r), req.PlanID, req.DeviceUID)
	if err != nil {
		respondUseCaseError(w, err)
		return
	}
	respondData(w, http.StatusCreated, map[string]any{
		"invoice":      toInvoiceView(res.Invoice),
		"subscription": toSubscriptionView(res.Subscription),
		"device":       toDeviceView(res.Device),
		"instructions": toInstructionsView(res.Instructions),
	})
}

func (s *Server) handleCheckoutStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.checkout.Stats(r.Context(), merchantID(r))
	if err != nil {
		respondUseCaseError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]any{
		"invoice":        toInvoiceView(stats.Invoice),
		"subscription":   toSubscriptionView(stats.Subscription),
		"active_devices": stats.ActiveDevices,
		"swept_invoices": stats.SweptInvoices,
	})
}

type cancelCheckoutRequest struct {
	InvoiceID string `json:"invoice_id" validate:"required"`
}

func (s *Server) handleCancelCheckout(w http.ResponseWriter, r *http.Request) {
	var req cancelCheckoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.checkout.Cancel(r.Context(), merchantID(r), req.InvoiceID); err != nil {
		respondUseCaseError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "Invoice cancelled", nil)
}

func (s *Server) handleSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.subs.Status(r.Context(), merchantID(r))
	if err != nil {
		respondUseCaseError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]any{
		"merchant": map[string]any{
			"id":         st.Merchant.ID,
			"name":       st.Merchant.Name,
			"status":     string(st.Merchant.Status),
			"trial_used": st.Merchant.TrialUsed,
		},
		"subscription":   toSubscriptionView(st.Subscription),
		"plan":           toPlanView(st.Plan),
		"open_invoice":   toInvoiceView(st.OpenInvoice),
		"live_tokens":    st.LiveTokens,
		"active_devices": st.ActiveDevices,
		"days_remaining": st.DaysRemaining,
		"expired":        st.Expired,
	})
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.renewals.AvailablePlans(r.Context())
	if err != nil {
		respondUseCaseError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]any{"plans": toPlanViews(plans)})
}
