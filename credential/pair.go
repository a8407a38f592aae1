package credential

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Pair represents the access/refresh token pair issued by the backend.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	// ExpiresIn is the access token lifetime in seconds, as reported on issue.
	ExpiresIn int64 `json:"expiresIn,omitempty"`
}

// HasAccess returns true if an access token is present.
func (p *Pair) HasAccess() bool {
	return p != nil && p.AccessToken != ""
}

// HasRefresh returns true if a refresh token is present.
func (p *Pair) HasRefresh() bool {
	return p != nil && p.RefreshToken != ""
}

// IsEmpty returns true if neither token is present.
func (p *Pair) IsEmpty() bool {
	return !p.HasAccess() && !p.HasRefresh()
}

// AccessExpiry peeks at the exp claim of a JWT access token without verifying it.
// It is informational only; the server remains the authority on expiry.
func (p *Pair) AccessExpiry() (time.Time, bool) {
	if !p.HasAccess() {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(p.AccessToken, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
