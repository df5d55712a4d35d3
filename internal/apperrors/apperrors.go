// Package apperrors defines the typed errors shared by every layer.
// Handlers map them to HTTP status codes; services return them as-is so
// callers can match with errors.Is / errors.As.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers unknown raffle, purchase request or admin ids.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyProcessed is returned when a transition is attempted on a
	// request that is no longer pending.
	ErrAlreadyProcessed = errors.New("request already processed")

	// ErrNotAuthorized is a role-gate failure. It carries no detail about
	// the target resource so existence is never leaked.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrMissingEvidence rejects a purchase submission without a payment
	// receipt.
	ErrMissingEvidence = errors.New("missing payment evidence")
)

// ValidationError is bad input shape, rejected before any persistence.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidation builds a ValidationError for a single failed constraint.
func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// StockViolation rejects a quantity against the authoritative remaining
// count: over-stock requests, the orphan-stock rule, and the
// insufficient-stock race at approval time. Remaining lets the caller
// retry with a valid quantity.
type StockViolation struct {
	Requested  int
	Remaining  int
	MinTickets int
	Reason     string
}

func (e *StockViolation) Error() string {
	return fmt.Sprintf("%s: requested %d, remaining %d", e.Reason, e.Requested, e.Remaining)
}

// UpstreamFailure wraps an error from an external collaborator (identity
// provider, object store, notification channel).
type UpstreamFailure struct {
	Service string
	Err     error
}

func (e *UpstreamFailure) Error() string {
	return fmt.Sprintf("%s upstream failure: %v", e.Service, e.Err)
}

func (e *UpstreamFailure) Unwrap() error { return e.Err }
