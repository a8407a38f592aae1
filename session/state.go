package session

import (
	"errors"

	"github.com/google/uuid"
	"github.com/viant/mailnotify/api"
)

var (
	// ErrNotAuthenticated is returned by guards when no session is active.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrBootstrapping is returned by guards before the startup credential check completed.
	ErrBootstrapping = errors.New("session is bootstrapping")
)

// State is a snapshot of the session.
type State struct {
	Authenticated bool
	// Loading is true only until Bootstrap completed its credential check.
	Loading bool
	// Profile holds the cached user record; after login it carries at least the email.
	Profile *api.Profile
}

// ProfileLoaded returns true once the full profile was fetched from the server.
func (s State) ProfileLoaded() bool {
	return s.Profile != nil && s.Profile.ID != uuid.Nil
}

// Email returns the profile email, if known.
func (s State) Email() string {
	if s.Profile == nil {
		return ""
	}
	return s.Profile.Email
}

func (s State) clone() State {
	if s.Profile != nil {
		dup := *s.Profile
		s.Profile = &dup
	}
	return s
}
