package response

import (
	"errors"
	"net/http"

	"timeclock/internal/service"
	"timeclock/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	case errors.Is(err, service.ErrUserNotFound):
		NotFound(w, "User not found")
	case errors.Is(err, service.ErrLeaveNotFound):
		NotFound(w, "Leave booking not found")
	case errors.Is(err, service.ErrUserExists):
		Conflict(w, "User already exists")
	case errors.Is(err, service.ErrAlreadyClockedIn):
		Conflict(w, "Already clocked in")
	case errors.Is(err, service.ErrNotClockedIn):
		Conflict(w, "Not clocked in")
	case errors.Is(err, service.ErrLeaveConflict):
		Conflict(w, "Leave overlaps an existing booking")
	case errors.Is(err, service.ErrForbidden):
		Forbidden(w, "Access denied")
	case errors.Is(err, service.ErrInvalidLeaveRange),
		errors.Is(err, service.ErrInvalidLeaveType),
		errors.Is(err, service.ErrNoWorkingDays),
		errors.Is(err, service.ErrClockOutBeforeIn),
		errors.Is(err, service.ErrInvalidEvent):
		BadRequest(w, err.Error(), nil)

	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
