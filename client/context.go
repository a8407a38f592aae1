package client

import "context"

type attemptKey struct{}

// attempt marks a request that is being re-issued after a refresh.
// It travels in the context of the retried attempt only; the original call is never mutated.
type attempt struct {
	accessToken string
}

func withRetry(ctx context.Context, accessToken string) context.Context {
	return context.WithValue(ctx, attemptKey{}, &attempt{accessToken: accessToken})
}

func retryOf(ctx context.Context) (*attempt, bool) {
	ret, ok := ctx.Value(attemptKey{}).(*attempt)
	return ret, ok
}

// IsRetry returns true if ctx belongs to an attempt re-issued after a token refresh.
func IsRetry(ctx context.Context) bool {
	_, ok := retryOf(ctx)
	return ok
}
