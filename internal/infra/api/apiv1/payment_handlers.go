// File: internal/infra/api/apiv1/payment_handlers.go
package apiv1

import (
	"encoding/base64"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pos-license-platform/internal/domain/model"
	"pos-license-platform/internal/usecase"
)

type submitConfirmationRequest struct {
	InvoiceID    string `json:"invoice_id" validate:"required"`
	Amount       int64  `json:"amount" validate:"required,gt=0"`
	BankName     string `json:"bank_name"`
	ReferenceNo  string `json:"reference_no"`
	Notes        string `json:"notes"`
	EvidenceName string `json:"evidence_name" validate:"required"`
	Evidence     string `json:"evidence" validate:"required"` // base64
}

func (s *Server) handleSubmitConfirmation(w http.ResponseWriter, r *http.Request) {
	var req submitConfirmationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	evidence, err := base64.StdEncoding.DecodeString(req.Evidence)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Evidence must be base64 encoded",
			map[string][]string{"evidence": {"evidence.not_base64: Evidence must be base64 encoded"}})
		return
	}
	conf, err := s.payments.SubmitConfirmation(r.Context(), merchantID(r), usecase.SubmitConfirmationInput{
		InvoiceID:    req.InvoiceID,
		Amount:       req.Amount,
		BankName:     req.BankName,
		ReferenceNo:  req.ReferenceNo,
		Notes:        req.Notes,
		EvidenceName: req.EvidenceName,
		Evidence:     evidence,
	})
	if err != nil {
		respondUseCaseError(w, err)
		return
	}
	respondData(w, http.StatusCreated, toConfirmationView(conf))
}

func (s *Server) handleListConfirmations(w http.ResponseWriter, r *http.Request) {
	confs, err := s.payments.ListConfirmations(r.Context(), merchantID(r))
	if err != nil {
		respondUseCaseError(w, err)
		return
	}
	items := make([]*confirmationView, 0, len(confs))
	for _, c := range confs {
		items = append(items, toConfirmationView(c))
	}
	respondData(w, http.StatusOK, map[string]any{"items": items})
}

type reviewConfirmationRequest struct {
	ReviewerID string `json:"reviewer_id" validate:"required"`
	Note       string `json:"note"`
}

func (s *Server) handleApproveConfirmation(w http.ResponseWriter, r *http.Request) {
	var req reviewConfirmationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.payments.ApproveConfirmation(r.Context(), id, req.ReviewerID, req.Note); err != nil {
		respondUseCaseError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "Confirmation approved", nil)
}

func (s *Server) handleRejectConfirmation(w http.ResponseWriter, r *http.Request) {
	var req reviewConfirmationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.payments.RejectConfirmation(r.Context(), id, req.ReviewerID, req.Note); err != nil {
		respondUseCaseError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "Confirmation rejected", nil)
}

type markPaidRequest struct {
	Method      string `json:"method"`
	ReferenceNo string `json:"reference_no"`
	AdminID     string `json:"admin_id" validate:"required"`
}

func (s *Server) handleMarkInvoicePaid(w http.ResponseWriter, r *http.Request) {
	var req markPaidRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Method == "" {
		req.Method = model.PaymentMethodManualBank
	}
	id := chi.URLParam(r, "id")
	if err := s.payments.MarkInvoiceAsPaid(r.Context(), id, req.Method, req.ReferenceNo, req.AdminID); err != nil {
		respondUseCaseError(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "Invoice marked as paid", nil)
}
