package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pharmabill/backend/internal/domain/shared"
	"github.com/pharmabill/backend/internal/interfaces/http/dto"
	"github.com/pharmabill/backend/internal/interfaces/http/middleware"
)

var (
	errPharmacyMissing = errors.New("pharmacy scope not found in context")
	errUserMissing     = errors.New("user ID not found in context")
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getPharmacyID returns the pharmacy the request is scoped to
func getPharmacyID(c *gin.Context) (uuid.UUID, error) {
	id, ok := middleware.GetPharmacyID(c)
	if !ok {
		return uuid.Nil, errPharmacyMissing
	}
	return id, nil
}

// getUserID returns the authenticated user, if the token carried one
func getUserID(c *gin.Context) (uuid.UUID, error) {
	id, ok := middleware.GetUserID(c)
	if !ok {
		return uuid.Nil, errUserMissing
	}
	return id, nil
}

// optionalUserID is getUserID for audit fields that may stay empty
func optionalUserID(c *gin.Context) *uuid.UUID {
	id, err := getUserID(c)
	if err != nil {
		return nil
	}
	return &id
}

// parseIDParam parses a UUID path parameter
func parseIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	code = dto.NormalizeErrorCode(code)
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		middleware.GetRequestID(c),
		details,
	))
}

// BindError answers a failed ShouldBind call
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	h.ValidationError(c, middleware.ValidationDetails(err))
}

// HandleError converts domain errors to HTTP responses. Anything else is
// reported as an internal error without leaking its message.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.ErrorWithCode(c, domainErr.Code, domainErr.Message)
		return
	}

	_ = c.Error(err)
	h.InternalError(c, "An unexpected error occurred")
}

// pharmacyOrAbort resolves the pharmacy scope, answering 401 when it is missing
func (h *BaseHandler) pharmacyOrAbort(c *gin.Context) (uuid.UUID, bool) {
	pharmacyID, err := getPharmacyID(c)
	if err != nil {
		h.Unauthorized(c, "Pharmacy scope is required")
		return uuid.Nil, false
	}
	return pharmacyID, true
}

// idOrAbort parses a UUID path parameter, answering 400 when it is malformed
func (h *BaseHandler) idOrAbort(c *gin.Context, name, what string) (uuid.UUID, bool) {
	id, err := parseIDParam(c, name)
	if err != nil {
		h.BadRequest(c, "Invalid "+what+" ID format")
		return uuid.Nil, false
	}
	return id, true
}
