// Package apperr defines the application failure taxonomy. Every business rule
// violation maps to one sentinel with a stable machine-readable code, so
// handlers can translate failures for the caller without leaking storage
// internals.
package apperr

import "errors"

// Error is an application failure with a stable code.
type Error struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *Error) Error() string {
	return e.Message
}

func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

var (
	ErrNotFound     = New("not_found", "not found")
	ErrInvalidInput = New("invalid_input", "invalid input")
	ErrUnauthorized = New("unauthorized", "unauthorized")

	ErrAlreadyEnabled       = New("already_enabled", "wallet already enabled")
	ErrAlreadyDisabled      = New("already_disabled", "wallet already disabled")
	ErrWalletDisabled       = New("wallet_disabled", "wallet disabled")
	ErrConfirmationRequired = New("confirmation_required", "is_disabled must be true")
	ErrInsufficientFunds    = New("insufficient_funds", "insufficient funds")
	ErrDuplicateReference   = New("duplicate_reference", "reference_id already used")

	// ErrReferenceConflict means the reference_id uniqueness constraint tripped
	// concurrently. Safe to retry.
	ErrReferenceConflict = &Error{Code: "reference_conflict", Message: "reference_id conflict", Retryable: true}

	ErrStoreUnavailable = New("store_unavailable", "store unavailable")
)

// CodeOf extracts the stable code from err, or "internal_error" for anything
// outside the taxonomy.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal_error"
}

// IsRetryable reports whether the caller may safely retry the failed operation.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
