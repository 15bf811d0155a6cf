// Package apperr defines the error kinds that domain services return and
// the HTTP boundary translates. Services wrap these sentinels with context
// via fmt.Errorf("...: %w", apperr.Conflict) so callers can branch with
// errors.Is while messages stay human-readable.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// NotFound: a referenced bed/admission/bill/order id does not resolve.
	NotFound = errors.New("not found")

	// Conflict: resource is in the wrong state for the requested transition
	// (bed not available, bill already paid, slot already booked).
	Conflict = errors.New("conflict")

	// InvalidState: the operation is valid in general but not given the
	// entity's current status (discharging a discharged admission).
	InvalidState = errors.New("invalid state")

	// Validation: malformed input (negative quantity, missing reference).
	Validation = errors.New("validation failed")

	// Unauthorized: no usable caller identity.
	Unauthorized = errors.New("unauthorized")

	// Forbidden: caller identity lacks the required role.
	Forbidden = errors.New("forbidden")

	// Inconsistent: a multi-entity operation failed partway and the
	// compensating step also failed. Operators must intervene; the
	// operation must never be reported as success.
	Inconsistent = errors.New("inconsistent state")
)

// NotFoundf wraps NotFound with a formatted message.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, NotFound)...)
}

// Conflictf wraps Conflict with a formatted message.
func Conflictf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, Conflict)...)
}

// InvalidStatef wraps InvalidState with a formatted message.
func InvalidStatef(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, InvalidState)...)
}

// Validationf wraps Validation with a formatted message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, Validation)...)
}

// Inconsistentf wraps Inconsistent with a formatted message.
func Inconsistentf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, Inconsistent)...)
}

// HTTPStatus maps an error to the status code the boundary should return.
// Unrecognized errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, NotFound):
		return http.StatusNotFound
	case errors.Is(err, Conflict):
		return http.StatusConflict
	case errors.Is(err, InvalidState):
		return http.StatusUnprocessableEntity
	case errors.Is(err, Validation):
		return http.StatusBadRequest
	case errors.Is(err, Unauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, Forbidden):
		return http.StatusForbidden
	case errors.Is(err, Inconsistent):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
