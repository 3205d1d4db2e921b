// Package apperrors defines the error taxonomy shared by the ledger engine's
// core and persistence layers.
package apperrors

import "errors"

// Sentinel errors. Repository and service code wraps these with fmt.Errorf's
// %w so callers can keep using errors.Is regardless of which layer raised it.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrValidation = errors.New("validation error")
	ErrDuplicate  = errors.New("resource already exists")
	ErrForbidden  = errors.New("action forbidden")
	ErrConflict   = errors.New("conflicting state")
	ErrInternal   = errors.New("internal error")
)

// AppError wraps a repository-level failure with an HTTP-ish status and a
// human message, the shape every pgsql repository method wraps driver
// errors in.
type AppError struct {
	Status  int
	Message string
	Cause   error
}

func NewAppError(status int, message string, cause error) *AppError {
	return &AppError{Status: status, Message: message, Cause: cause}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func NewNotFoundError(message string) *AppError {
	return &AppError{Status: 404, Message: message, Cause: ErrNotFound}
}

// Domain-level error kinds. Each wraps one of the sentinels
// above so errors.Is(err, ErrValidation) etc. still works after wrapping.

// ValidationError indicates malformed workflow input.
type ValidationError struct {
	Msg string
}

func NewValidationError(msg string) *ValidationError { return &ValidationError{Msg: msg} }
func (e *ValidationError) Error() string              { return e.Msg }
func (e *ValidationError) Unwrap() error              { return ErrValidation }

// TransactionError indicates a business-rule violation: cancelled trip,
// booking window closed, duplicate ticket, seats exhausted, multi-company
// attempt, all-or-nothing refund violation, refund exceeds remaining, stale
// price, not-found entities during refund.
type TransactionError struct {
	Msg string
}

func NewTransactionError(msg string) *TransactionError { return &TransactionError{Msg: msg} }
func (e *TransactionError) Error() string               { return e.Msg }
func (e *TransactionError) Unwrap() error               { return ErrConflict }

// ChargeError indicates the gateway declined the charge/refund or a network
// failure prevented completion. The enclosing DB transaction is rolled back;
// the caller may retry with the same idempotency key.
type ChargeError struct {
	Msg   string
	Cause error
}

func NewChargeError(msg string, cause error) *ChargeError { return &ChargeError{Msg: msg, Cause: cause} }
func (e *ChargeError) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}
func (e *ChargeError) Unwrap() error { return ErrConflict }

// InternalError indicates an invariant violation (zero-sum failed, missing
// expected item). Fatal; should be logged and surfaced as a 5xx-equivalent.
type InternalError struct {
	Msg   string
	Cause error
}

func NewInternalError(msg string, cause error) *InternalError { return &InternalError{Msg: msg, Cause: cause} }
func (e *InternalError) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}
func (e *InternalError) Unwrap() error { return ErrInternal }
