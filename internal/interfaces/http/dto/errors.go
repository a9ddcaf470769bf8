package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeServiceUnavailable is used when a dependency is down
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
	// ErrCodePaymentGateway is used when the payment gateway rejects or fails a call
	ErrCodePaymentGateway = "ERR_PAYMENT_GATEWAY"
)

// Validation error codes
const (
	ErrCodeValidation       = "ERR_VALIDATION"
	ErrCodeCurrencyMismatch = "ERR_CURRENCY_MISMATCH"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Billing rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeInvalidStatusTransition is used for forbidden client status changes
	ErrCodeInvalidStatusTransition = "ERR_INVALID_STATUS_TRANSITION"
	// ErrCodeClientNotActive is used when a suspended client is charged
	ErrCodeClientNotActive = "ERR_CLIENT_NOT_ACTIVE"
	// ErrCodeClientClosed is used for any balance movement on a closed account
	ErrCodeClientClosed = "ERR_CLIENT_CLOSED"
	// ErrCodeCreditLimitExceeded is used when a charge would exceed the credit limit
	ErrCodeCreditLimitExceeded = "ERR_CREDIT_LIMIT_EXCEEDED"
)

// Input error codes
const (
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Rate limiting error codes
const (
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:            http.StatusInternalServerError,
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodePaymentGateway:     http.StatusBadGateway,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeCurrencyMismatch: http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Over the limit is a conflict with the account state the caller can resolve
	ErrCodeCreditLimitExceeded: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:            http.StatusUnprocessableEntity,
	ErrCodeInvalidStatusTransition: http.StatusUnprocessableEntity,
	ErrCodeClientNotActive:         http.StatusUnprocessableEntity,
	ErrCodeClientClosed:            http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"VALIDATION_ERROR":          ErrCodeValidation,
	"CURRENCY_MISMATCH":         ErrCodeCurrencyMismatch,
	"CREDIT_LIMIT_EXCEEDED":     ErrCodeCreditLimitExceeded,
	"INVALID_STATUS_TRANSITION": ErrCodeInvalidStatusTransition,
	"CLIENT_NOT_ACTIVE":         ErrCodeClientNotActive,
	"CLIENT_CLOSED":             ErrCodeClientClosed,
	"NOT_FOUND":                 ErrCodeNotFound,
	"ALREADY_EXISTS":            ErrCodeAlreadyExists,
	"CONCURRENCY_CONFLICT":      ErrCodeConcurrencyConflict,
	"INVALID_STATE":             ErrCodeInvalidState,
	"UNAUTHORIZED":              ErrCodeUnauthorized,
	"BAD_REQUEST":               ErrCodeBadRequest,
	"INTERNAL_ERROR":            ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
