package mailnotify

import (
	"errors"
	"fmt"
)

// UnauthorizedError represents an HTTP 401 Unauthorized error returned by the backend.
type UnauthorizedError struct {
	*StatusError
}

// Error implements the error interface.
func (e *UnauthorizedError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("unauthorized (status %d): %s", e.StatusCode, string(e.Body))
	}
	return fmt.Sprintf("unauthorized (status %d)", e.StatusCode)
}

func (e *UnauthorizedError) Unwrap() error {
	return e.StatusError
}

// IsUnauthorized returns true if err is or wraps an UnauthorizedError.
func IsUnauthorized(err error) bool {
	var target *UnauthorizedError
	return errors.As(err, &target)
}

// ForbiddenError represents an HTTP 403 response; the backend uses it to force a sign-out.
type ForbiddenError struct {
	*StatusError
}

// Error implements the error interface.
func (e *ForbiddenError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("forbidden (status %d): %s", e.StatusCode, string(e.Body))
	}
	return fmt.Sprintf("forbidden (status %d)", e.StatusCode)
}

func (e *ForbiddenError) Unwrap() error {
	return e.StatusError
}

// IsForbidden returns true if err is or wraps a ForbiddenError.
func IsForbidden(err error) bool {
	var target *ForbiddenError
	return errors.As(err, &target)
}
