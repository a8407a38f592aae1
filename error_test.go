package mailnotify

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResponse(code int, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: code,
		Header:     header,
		Request:    &http.Request{Method: http.MethodGet, URL: &url.URL{Path: "/api/v1/users/me"}},
	}
}

func TestNewStatusError(t *testing.T) {
	body := []byte(`{"error":"Bad Request","message":"Validation failed","status":400,"details":{"email":"must be a well-formed email address"}}`)
	statusErr := NewStatusError(newResponse(http.StatusBadRequest, nil), body)
	assert.EqualValues(t, 400, statusErr.StatusCode)
	assert.EqualValues(t, "Bad Request", statusErr.Status)
	assert.EqualValues(t, "Validation failed", statusErr.Message)
	assert.EqualValues(t, "must be a well-formed email address", statusErr.Details["email"])
	assert.EqualValues(t, "GET /api/v1/users/me: status 400: Validation failed", statusErr.Error())

	statusErr = NewStatusError(newResponse(http.StatusBadGateway, nil), []byte("<html>bad gateway</html>"))
	assert.Empty(t, statusErr.Message)
	assert.Contains(t, statusErr.Error(), "<html>bad gateway</html>")

	statusErr = NewStatusError(newResponse(http.StatusTooManyRequests, http.Header{"Retry-After": []string{"12"}}), nil)
	assert.EqualValues(t, 12*time.Second, statusErr.RetryAfter)
	assert.EqualValues(t, "GET /api/v1/users/me: status 429 Too Many Requests", statusErr.Error())
}

func TestNewResponseError(t *testing.T) {
	testCases := []struct {
		code         int
		unauthorized bool
		forbidden    bool
	}{
		{code: http.StatusUnauthorized, unauthorized: true},
		{code: http.StatusForbidden, forbidden: true},
		{code: http.StatusNotFound},
		{code: http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		err := NewResponseError(NewStatusError(newResponse(tc.code, nil), nil))
		assert.EqualValues(t, tc.unauthorized, IsUnauthorized(err), tc.code)
		assert.EqualValues(t, tc.forbidden, IsForbidden(err), tc.code)
		statusErr, ok := AsStatusError(err)
		require.True(t, ok, tc.code)
		assert.EqualValues(t, tc.code, statusErr.StatusCode)
	}
}

func TestErrorMessage(t *testing.T) {
	withMessage := NewStatusError(newResponse(http.StatusUnauthorized, nil), []byte(`{"message":"Invalid email or password"}`))
	withoutMessage := NewStatusError(newResponse(http.StatusServiceUnavailable, nil), nil)

	testCases := []struct {
		description string
		err         error
		expect      string
	}{
		{description: "nil", err: nil, expect: ""},
		{description: "server message", err: withMessage, expect: "Invalid email or password"},
		{description: "wrapped server message", err: &AuthError{Op: "login", Err: NewResponseError(withMessage)}, expect: "Invalid email or password"},
		{description: "status text", err: withoutMessage, expect: "Service Unavailable"},
		{description: "signed out", err: fmt.Errorf("%w: %w", ErrSignedOut, NewResponseError(withMessage)), expect: "Invalid email or password"},
		{description: "plain error", err: errors.New("dial tcp: connection refused"), expect: "dial tcp: connection refused"},
	}
	for _, tc := range testCases {
		assert.EqualValues(t, tc.expect, ErrorMessage(tc.err), tc.description)
	}
}

func TestClassification(t *testing.T) {
	cause := NewResponseError(NewStatusError(newResponse(http.StatusForbidden, nil), nil))
	signedOut := fmt.Errorf("%w: %w", ErrSignedOut, cause)
	assert.True(t, IsSignedOut(signedOut))
	assert.True(t, IsForbidden(signedOut))
	assert.False(t, IsAuthError(signedOut))
	assert.False(t, IsSignedOut(cause))

	unauthorized := NewResponseError(NewStatusError(newResponse(http.StatusUnauthorized, nil), []byte("token expired")))
	assert.True(t, IsUnauthorized(unauthorized))
	assert.EqualValues(t, "unauthorized (status 401): token expired", unauthorized.Error())
	assert.EqualValues(t, "Unauthorized", ErrorMessage(unauthorized))

	authErr := &AuthError{Op: "register", Err: errors.New("response carried no access token")}
	assert.True(t, IsAuthError(fmt.Errorf("cli: %w", authErr)))
	assert.EqualValues(t, "register rejected: response carried no access token", authErr.Error())
}
