package models

import "errors"

// Sentinel errors for the installment domain. Handlers map these to HTTP
// status codes with errors.Is, so lower layers must wrap rather than replace.
var (
	// ErrInvalidAmount reports a non-positive payment amount.
	ErrInvalidAmount = errors.New("payment amount must be positive")

	// ErrInvalidState reports a payment or cancellation attempted against a
	// completed or cancelled installment.
	ErrInvalidState = errors.New("installment is closed")

	// ErrConflict reports that a conditional update lost against a concurrent
	// writer; the caller must re-read and retry from fresh state.
	ErrConflict = errors.New("installment was modified concurrently")

	// ErrNotFound reports a missing record.
	ErrNotFound = errors.New("record not found")

	// ErrValidation reports malformed or missing request fields.
	ErrValidation = errors.New("invalid input")
)
