package apperrors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError is the JSON error body every endpoint returns.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

const (
	CodeBadRequest          = "BAD_REQUEST"
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeInvalidSchedule     = "INVALID_SCHEDULE"
	CodeInvalidReportType   = "INVALID_REPORT_TYPE"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeInternalServerError = "INTERNAL_SERVER_ERROR"
)

func NewAPIError(statusCode int, code, message, details string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Details:    details,
	}
}

// FromError maps a service error onto its HTTP response. Unknown errors
// become a 500 without their text.
func FromError(err error) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, ErrInvalidSchedule):
		return NewAPIError(http.StatusBadRequest, CodeInvalidSchedule, "Invalid cron schedule.", err.Error())
	case errors.Is(err, ErrInvalidKind):
		return NewAPIError(http.StatusBadRequest, CodeInvalidReportType, "Invalid report type.", err.Error())
	case errors.Is(err, ErrValidation):
		return NewAPIError(http.StatusBadRequest, CodeValidationFailed, "Validation failed.", err.Error())
	case errors.Is(err, ErrNotFound):
		return NewAPIError(http.StatusNotFound, CodeNotFound, "Resource not found.", err.Error())
	case errors.Is(err, ErrForbidden):
		return NewAPIError(http.StatusForbidden, CodeForbidden, "Insufficient permissions.", err.Error())
	case errors.Is(err, ErrUnauthorized):
		return NewAPIError(http.StatusUnauthorized, CodeUnauthorized, "Unauthorized.", err.Error())
	default:
		return NewAPIError(http.StatusInternalServerError, CodeInternalServerError, "Internal server error.", "")
	}
}

// RespondWithError writes the error body and aborts the handler chain.
func RespondWithError(c *gin.Context, err error) {
	apiErr := FromError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(apiErr.StatusCode, gin.H{"error": apiErr})
}
