package mailnotify

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrSignedOut is wrapped into every error returned after the client tore the session down.
var ErrSignedOut = errors.New("session signed out")

// StatusError represents a non-2xx HTTP response returned by the backend.
type StatusError struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Status is the HTTP status text (e.g. "Bad Request").
	Status string
	Method string
	Path   string
	// Body contains the raw response body, if available.
	Body []byte
	// Message is the server provided message, if the body carried one.
	Message string
	// Details holds field level validation messages, if any.
	Details map[string]string
	// RetryAfter is populated from the Retry-After header.
	RetryAfter time.Duration
}

// errorBody mirrors the backend error envelope.
type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Status  int               `json:"status"`
	Details map[string]string `json:"details"`
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e == nil {
		return ""
	}
	target := strings.TrimSpace(e.Method + " " + e.Path)
	if target != "" {
		target += ": "
	}
	if e.Message != "" {
		return fmt.Sprintf("%sstatus %d: %s", target, e.StatusCode, e.Message)
	}
	if len(e.Body) > 0 {
		return fmt.Sprintf("%sstatus %d: %s", target, e.StatusCode, string(e.Body))
	}
	return fmt.Sprintf("%sstatus %d %s", target, e.StatusCode, e.Status)
}

// NewStatusError builds a StatusError from a response and its already read body.
func NewStatusError(resp *http.Response, body []byte) *StatusError {
	ret := &StatusError{
		StatusCode: resp.StatusCode,
		Status:     http.StatusText(resp.StatusCode),
		Body:       body,
	}
	if resp.Request != nil {
		ret.Method = resp.Request.Method
		if resp.Request.URL != nil {
			ret.Path = resp.Request.URL.Path
		}
	}
	if len(body) > 0 {
		envelope := &errorBody{}
		if err := json.Unmarshal(body, envelope); err == nil {
			ret.Message = envelope.Message
			ret.Details = envelope.Details
		}
	}
	if value := resp.Header.Get("Retry-After"); value != "" {
		if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			ret.RetryAfter = time.Duration(seconds) * time.Second
		}
	}
	return ret
}

// NewResponseError classifies a StatusError into the taxonomy used by the client.
func NewResponseError(statusErr *StatusError) error {
	switch statusErr.StatusCode {
	case http.StatusUnauthorized:
		return &UnauthorizedError{StatusError: statusErr}
	case http.StatusForbidden:
		return &ForbiddenError{StatusError: statusErr}
	}
	return statusErr
}

// AsStatusError returns the StatusError wrapped by err, if any.
func AsStatusError(err error) (*StatusError, bool) {
	var target *StatusError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// AuthError is returned when the server rejects submitted credentials.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s rejected: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthError returns true if err is or wraps an AuthError.
func IsAuthError(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsSignedOut returns true if err was returned after a forced sign-out.
func IsSignedOut(err error) bool {
	return errors.Is(err, ErrSignedOut)
}

// ErrorMessage extracts a human-readable message from err:
// the server message, else the HTTP status text, else the error text.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if statusErr, ok := AsStatusError(err); ok {
		if statusErr.Message != "" {
			return statusErr.Message
		}
		if statusErr.Status != "" {
			return statusErr.Status
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return DefaultErrorMessage
}
