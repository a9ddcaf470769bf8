package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeCurrencyMismatch, http.StatusBadRequest},
		{ErrCodeCreditLimitExceeded, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeInvalidStatusTransition, http.StatusUnprocessableEntity},
		{ErrCodeClientNotActive, http.StatusUnprocessableEntity},
		{ErrCodeClientClosed, http.StatusUnprocessableEntity},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
		{ErrCodePaymentGateway, http.StatusBadGateway},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode_CoversEveryDomainCode(t *testing.T) {
	domainCodes := []string{
		shared.CodeValidation,
		shared.CodeCurrencyMismatch,
		shared.CodeCreditLimitExceeded,
		shared.CodeInvalidStatusTransition,
		shared.CodeClientNotActive,
		shared.CodeClientClosed,
		shared.CodeNotFound,
		shared.CodeAlreadyExists,
		shared.CodeConcurrencyConflict,
		shared.CodeInvalidState,
		shared.CodeUnauthorized,
	}
	for _, code := range domainCodes {
		t.Run(code, func(t *testing.T) {
			normalized := NormalizeErrorCode(code)
			assert.NotEqual(t, code, normalized)
			_, known := ErrorCodeHTTPStatus[normalized]
			assert.True(t, known, "no HTTP status for %s", normalized)
		})
	}

	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode(ErrCodeNotFound))
	assert.Equal(t, "CUSTOM", NormalizeErrorCode("CUSTOM"))
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID("CLIENT_CLOSED", "Client account is closed", "req-1")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeClientClosed, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.NotZero(t, resp.Error.Timestamp)
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-2", []ValidationDetail{
		{Field: "phone", Message: "Invalid phone number"},
	})

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "phone", resp.Error.Details[0].Field)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"request_id":"req-2"`)
	assert.Contains(t, string(data), `"details":[{"field":"phone"`)
	assert.NotContains(t, string(data), `"data"`)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 41, 2, 20)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	resp = NewSuccessResponseWithMeta(nil, 5, 1, 0)
	assert.Equal(t, 0, resp.Meta.TotalPages)
}

func TestNewPaginatedResponse(t *testing.T) {
	page := shared.NewPaginated([]string{"a", "b"}, 12, 2, 5)

	resp := NewPaginatedResponse(&page)

	assert.True(t, resp.Success)
	assert.Equal(t, []string{"a", "b"}, resp.Data)
	assert.Equal(t, &Meta{Total: 12, Page: 2, PageSize: 5, TotalPages: 3}, resp.Meta)
}
