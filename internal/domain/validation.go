package domain

import "fmt"

// ValidationError is a business-rule violation. It carries the field the rule
// is keyed on, a stable machine-readable code for clients, and a human
// message. Violations are always recoverable: they surface to the caller and
// never abort the process.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message}
}

// Eligibility violations.
var (
	ErrMerchantInactive   = NewValidationError("merchant", "merchant.inactive", "Merchant account is not active")
	ErrDeviceInactive     = NewValidationError("device", "device.inactive", "Device is not active")
	ErrDeviceNotOwned     = NewValidationError("device", "device.not_owned", "Device does not belong to this merchant")
	ErrPlanInactive       = NewValidationError("plan", "plan.inactive", "Selected plan is not active")
	ErrPlanNoTrial        = NewValidationError("plan", "plan.no_trial", "Selected plan does not support trial period")
	ErrTrialAlreadyUsed   = NewValidationError("trial", "trial.already_used", "Trial has already been used for this merchant account")
	ErrTrialDaysInvalid   = NewValidationError("trial_days", "trial.days_invalid", "Trial period must be greater than 0 days")
	ErrSubscriptionExists = NewValidationError("subscription", "subscription.exists", "Merchant already has an active subscription")
	ErrUnpaidInvoice      = NewValidationError("payment", "invoice.unpaid_exists", "You have unpaid invoices. Please complete existing payments before creating new ones.")
	ErrNotRenewable       = NewValidationError("subscription", "subscription.not_renewable", "This subscription cannot be renewed at this time")
	ErrDeviceUIDInvalid   = NewValidationError("device_uid", "device.uid_invalid", "Device UID is required and must not exceed 255 characters")
)

// State violations.
var (
	ErrInvoiceAlreadyPaid     = NewValidationError("invoice", "invoice.already_paid", "Invoice is already paid")
	ErrInvoiceNotCancellable  = NewValidationError("invoice", "invoice.not_cancellable", "Invoice cannot be cancelled in its current status")
	ErrInvoiceNotOwned        = NewValidationError("invoice", "invoice.not_owned", "Invoice does not belong to this merchant")
	ErrConfirmationPending    = NewValidationError("confirmation", "confirmation.pending_exists", "Payment confirmation already submitted and pending review")
	ErrConfirmationNotPending = NewValidationError("confirmation", "confirmation.not_pending", "Payment confirmation is not awaiting review")
	ErrNoSubscription         = NewValidationError("subscription", "subscription.none", "No subscription found")
	ErrSubscriptionExpired    = NewValidationError("subscription", "subscription.expired", "Subscription has expired")
	ErrNoActiveToken          = NewValidationError("license", "license.no_active_token", "No active license token found for device")
	ErrNotTrial               = NewValidationError("subscription", "subscription.not_trial", "Subscription is not a trial subscription")
	ErrTrialExpired           = NewValidationError("trial", "trial.expired", "Trial period has already expired")
	ErrSubscriptionNotLinked  = NewValidationError("subscription", "subscription.not_linked", "Subscription does not belong to this merchant")
)
