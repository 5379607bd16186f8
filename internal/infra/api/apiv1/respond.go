// File: internal/infra/api/apiv1/respond.go
package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"pos-license-platform/internal/domain"
)

// envelope is the uniform response shape. Data and Errors are mutually
// exclusive.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Error maps key on the JSON name, not the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func respondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string, fieldErrors map[string][]string) {
	writeJSON(w, status, envelope{Success: false, Message: message, Errors: fieldErrors})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decodeBody parses and validates a JSON request body. A decode failure is a
// 400; a validation failure is a 422 with field-keyed messages.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		respondError(w, http.StatusBadRequest, "Request body is required", nil)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Malformed request body", nil)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			fields := make(map[string][]string, len(invalid))
			for _, fe := range invalid {
				fields[fe.Field()] = append(fields[fe.Field()], "failed "+fe.Tag()+" validation")
			}
			respondError(w, http.StatusUnprocessableEntity, "Validation failed", fields)
			return false
		}
		respondError(w, http.StatusBadRequest, "Invalid request", nil)
		return false
	}
	return true
}

// respondUseCaseError maps domain errors onto HTTP statuses: token
// violations are 401, an inactive account is 403, missing entities are 404,
// business-rule violations are 422, infrastructure faults are 500.
func respondUseCaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTokenSignature),
		errors.Is(err, domain.ErrTokenRevoked),
		errors.Is(err, domain.ErrTokenMismatch):
		respondError(w, http.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, domain.ErrMerchantInactive):
		respondError(w, http.StatusForbidden, domain.ErrMerchantInactive.Message, validationFields(domain.ErrMerchantInactive))
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found", nil)
	case errors.Is(err, domain.ErrAlreadyExists):
		respondError(w, http.StatusConflict, "Already exists", nil)
	default:
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			respondError(w, http.StatusUnprocessableEntity, ve.Message, validationFields(ve))
			return
		}
		respondError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

func validationFields(ve *domain.ValidationError) map[string][]string {
	return map[string][]string{ve.Field: {ve.Code + ": " + ve.Message}}
}
