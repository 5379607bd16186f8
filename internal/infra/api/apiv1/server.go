// File: internal/infra/api/apiv1/server.go
package apiv1

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"pos-license-platform/internal/infra/logging"
	"pos-license-platform/internal/usecase"
)

// merchantIDHeader scopes every merchant-facing route. Session auth lives in
// front of this service; the header is the resolved identity.
const merchantIDHeader = "X-Merchant-ID"

type ctxKey int

const merchantIDKey ctxKey = iota

// Server holds the use cases behind the /api/v1 surface.
type Server struct {
	licenses usecase.LicenseUseCase
	trials   usecase.TrialUseCase
	checkout usecase.CheckoutUseCase
	payments usecase.PaymentUseCase
	renewals usecase.RenewalUseCase
	subs     usecase.SubscriptionUseCase

	adminKey string
	log      *zerolog.Logger
}

func NewServer(
	licenses usecase.LicenseUseCase,
	trials usecase.TrialUseCase,
	checkout usecase.CheckoutUseCase,
	payments usecase.PaymentUseCase,
	renewals usecase.RenewalUseCase,
	subs usecase.SubscriptionUseCase,
	adminKey string,
	logger *zerolog.Logger,
) *Server {
	srvLog := logger.With().Str("component", "APIv1").Logger()
	return &Server{
		licenses: licenses,
		trials:   trials,
		checkout: checkout,
		payments: payments,
		renewals: renewals,
		subs:     subs,
		adminKey: adminKey,
		log:      &srvLog,
	}
}

// RegisterAPIV1 mounts all v1 routes on the given router.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)

		r.Get("/plans", s.handleListPlans)

		// Device validation carries no merchant session; the token itself
		// is the credential.
		r.Post("/license/validate", s.handleValidateToken)

		r.Group(func(r chi.Router) {
			r.Use(s.merchantScope)

			r.Post("/license/issue", s.handleIssueLicense)
			r.Post("/license/refresh", s.handleRefreshLicense)
			r.Get("/license", s.handleCurrentLicense)

			r.Post("/trial/start", s.handleStartTrial)
			r.Get("/trial/status", s.handleTrialStatus)
			r.Post("/trial/convert", s.handleConvertTrial)

			r.Post("/checkout", s.handleStartCheckout)
			r.Get("/checkout/status", s.handleCheckoutStatus)
			r.Post("/checkout/cancel", s.handleCancelCheckout)

			r.Get("/subscription/status", s.handleSubscriptionStatus)

			r.Get("/renewal/status", s.handleRenewalStats)
			r.Post("/renewal/renew", s.handleRenew)
			r.Post("/renewal/renew-with-plan", s.handleRenewWithPlan)
			r.Get("/renewal/plans", s.handleListPlans)
			r.Get("/renewal/history", s.handleRenewalHistory)

			r.Post("/payment-confirmations", s.handleSubmitConfirmation)
			r.Get("/payment-confirmations", s.handleListConfirmations)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.adminAuth)

			r.Post("/confirmations/{id}/approve", s.handleApproveConfirmation)
			r.Post("/confirmations/{id}/reject", s.handleRejectConfirmation)
			r.Post("/invoices/{id}/mark-paid", s.handleMarkInvoicePaid)
		})
	})
}

// merchantScope requires the merchant header and threads the id through the
// request context and the log context.
func (s *Server) merchantScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		merchantID := r.Header.Get(merchantIDHeader)
		if merchantID == "" {
			respondError(w, http.StatusUnauthorized, "Merchant identity is required", nil)
			return
		}
		ctx := context.WithValue(r.Context(), merchantIDKey, merchantID)
		ctx = logging.WithMerchantID(ctx, merchantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminAuth is a shared-key gate for the review endpoints.
func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminKey == "" {
			s.log.Error().Msg("admin API key is not configured")
			respondError(w, http.StatusForbidden, "Forbidden", nil)
			return
		}
		if r.Header.Get("X-Admin-Key") != s.adminKey {
			respondError(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func merchantID(r *http.Request) string {
	id, _ := r.Context().Value(merchantIDKey).(string)
	return id
}
