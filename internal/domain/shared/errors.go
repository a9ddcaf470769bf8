package shared

import "fmt"

// Error codes raised by the billing core
const (
	CodeValidation              = "VALIDATION_ERROR"
	CodeCurrencyMismatch        = "CURRENCY_MISMATCH"
	CodeCreditLimitExceeded     = "CREDIT_LIMIT_EXCEEDED"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeClientNotActive         = "CLIENT_NOT_ACTIVE"
	CodeClientClosed            = "CLIENT_CLOSED"
	CodeNotFound                = "NOT_FOUND"
	CodeAlreadyExists           = "ALREADY_EXISTS"
	CodeConcurrencyConflict     = "CONCURRENCY_CONFLICT"
	CodeInvalidState            = "INVALID_STATE"
	CodeUnauthorized            = "UNAUTHORIZED"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, shared.ErrCreditLimitExceeded) matches any message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a VALIDATION_ERROR with a formatted message
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// Sentinel errors, compared by code.
var (
	ErrValidation              = NewDomainError(CodeValidation, "Invalid input provided")
	ErrCurrencyMismatch        = NewDomainError(CodeCurrencyMismatch, "Currency mismatch")
	ErrCreditLimitExceeded     = NewDomainError(CodeCreditLimitExceeded, "Credit limit exceeded")
	ErrInvalidStatusTransition = NewDomainError(CodeInvalidStatusTransition, "Status transition not allowed")
	ErrClientNotActive         = NewDomainError(CodeClientNotActive, "Client is not active")
	ErrClientClosed            = NewDomainError(CodeClientClosed, "Client account is closed")
	ErrNotFound                = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists           = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrConcurrencyConflict     = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrInvalidState            = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrUnauthorized            = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
)
