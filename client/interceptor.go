package client

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader carries a per-attempt request id.
const RequestIDHeader = "X-Request-Id"

// Interceptor defines an interface for intercepting outbound requests.
// It is called for every attempt, including the one re-issued after a refresh,
// and may mutate request headers. Returning an error aborts the attempt.
type Interceptor interface {
	Intercept(ctx context.Context, request *http.Request) error
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(ctx context.Context, request *http.Request) error

func (f InterceptorFunc) Intercept(ctx context.Context, request *http.Request) error {
	return f(ctx, request)
}

// bearer attaches the access token; a retried attempt uses the freshly issued token.
type bearer struct {
	c *Client
}

func (b *bearer) Intercept(ctx context.Context, request *http.Request) error {
	if anonymousOf(ctx) {
		return nil
	}
	token := ""
	if retry, ok := retryOf(ctx); ok {
		token = retry.accessToken
	} else {
		pair, err := b.c.store.Load(ctx)
		if err != nil {
			return err
		}
		token = pair.AccessToken
	}
	if token != "" {
		request.Header.Set("Authorization", bearerPrefix+token)
	}
	return nil
}

type requestID struct{}

func (requestID) Intercept(_ context.Context, request *http.Request) error {
	if request.Header.Get(RequestIDHeader) == "" {
		request.Header.Set(RequestIDHeader, uuid.New().String())
	}
	return nil
}

type userAgent string

func (u userAgent) Intercept(_ context.Context, request *http.Request) error {
	if u != "" {
		request.Header.Set("User-Agent", string(u))
	}
	return nil
}
