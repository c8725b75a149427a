package apperrors

import "errors"

var (
	// ErrValidation is returned when request input fails validation.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidSchedule is returned for a malformed cron expression.
	ErrInvalidSchedule = errors.New("invalid schedule")

	// ErrInvalidKind is returned for an unknown report kind.
	ErrInvalidKind = errors.New("invalid report type")

	// ErrNotFound is returned when a specific record is not found.
	ErrNotFound = errors.New("requested record not found")

	ErrForbidden    = errors.New("insufficient permissions")
	ErrUnauthorized = errors.New("unauthorized")
)
