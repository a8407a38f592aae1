package client

import (
	"context"
	"net/http"
	"net/url"
)

// RequestOption mutates a single call.
type RequestOption func(c *call)

// call is the immutable description of a request; every attempt is built from it.
type call struct {
	method    string
	path      string
	query     url.Values
	header    http.Header
	payload   []byte
	anonymous bool
}

// WithQuery sets URL query parameters.
func WithQuery(values url.Values) RequestOption {
	return func(c *call) {
		c.query = values
	}
}

// WithHeader sets an extra request header.
func WithHeader(key, value string) RequestOption {
	return func(c *call) {
		if c.header == nil {
			c.header = make(http.Header)
		}
		c.header.Set(key, value)
	}
}

// Anonymous sends the request without credentials and without session handling:
// no Authorization header, no refresh on 401, no sign-out on 403.
func Anonymous() RequestOption {
	return func(c *call) {
		c.anonymous = true
	}
}

type anonymousKey struct{}

func withAnonymous(ctx context.Context) context.Context {
	return context.WithValue(ctx, anonymousKey{}, true)
}

func anonymousOf(ctx context.Context) bool {
	v, _ := ctx.Value(anonymousKey{}).(bool)
	return v
}

// Response represents a successful backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// RequestID is the id sent with the attempt that produced this response.
	RequestID string
}
