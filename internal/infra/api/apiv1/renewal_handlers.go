// File: internal/infra/api/apiv1/renewal_handlers.go
package apiv1

import (
	"net/http"
)

func (s *Server) handleRenewalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.renewals.Stats(r.Context(), merchantID(r))
	if err != nil {
		respondUseCaseError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]any{
		"subscription":   toSubscriptionView(stats.Subscription),
		"plan":           toPlanView(stats.Plan),
		"renewable":      stats.Renewable,
		"renewal_reason": stats.RenewalReason,
		"days_until_end": stats.DaysUntilEnd,
		"open_invoice":   toInvoiceView(stats.OpenInvoice),
	})
}

func (s *Server) handleRenew(w http.ResponseWriter, r *http.Request) {
	s.renew(w, r, "")
}

type renewWithPlanRequest struct {
	PlanID string `json:"plan_id" validate:"required"`
}

func (s *Server) handleRenewWithPlan(w http.ResponseWriter, r *http.Request) {
	var req renewWithPlanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.renew(w, r, req.PlanID)
}

func (s *Server) renew(w http.ResponseWriter, r *http.Request, planID string) {
	res, err := s.renewals.Renew(r.Context(), merchantID(r), planID)
	if err != nil {
		respondUseCaseError(w, err)
		return
	}
	status := http.StatusCreated
	if res.Reused {
		status = http.StatusOK
	}
	respondData(w, status, map[string]any{
		"invoice":      toInvoiceView(res.Invoice),
		"subscription": toSubscriptionView(res.Subscription),
		"reused":       res.Reused,
	})
}

func (s *Server) handleRenewalHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.renewals.History(r.Context(), merchantID(r))
	if err != nil {
		respondUseCaseError(w, err)
		return
	}
	items := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		items = append(items, map[string]any{
			"subscription":  toSubscriptionView(e.Subscription),
			"plan":          toPlanView(e.Plan),
			"total_paid":    e.TotalPaid,
			"paid_invoices": e.PaidInvoices,
		})
	}
	respondData(w, http.StatusOK, map[string]any{"items": items})
}
