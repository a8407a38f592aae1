package broadcast

import "time"

// Reason explains why the session was torn down.
type Reason string

const (
	ReasonForbidden              Reason = "forbidden"
	ReasonRefreshFailed          Reason = "refresh_failed"
	ReasonNoRefreshToken         Reason = "no_refresh_token"
	ReasonUnauthorizedAfterRetry Reason = "unauthorized_after_retry"
)

// SignedOut is published whenever the client unilaterally invalidates the session.
// Credentials are already cleared when it is delivered.
type SignedOut struct {
	Reason Reason
	At     time.Time
}

// NewSignedOut creates a SignedOut event stamped with the current time.
func NewSignedOut(reason Reason) SignedOut {
	return SignedOut{Reason: reason, At: time.Now()}
}
