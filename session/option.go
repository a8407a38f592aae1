package session

import (
	"context"

	"github.com/viant/mailnotify"
	"github.com/viant/mailnotify/api"
	"github.com/viant/mailnotify/credential"
)

// Authenticator exchanges credentials for a token pair.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*credential.Pair, error)
	Register(ctx context.Context, email, password string) (*credential.Pair, error)
}

// ProfileFetcher loads the authenticated user.
type ProfileFetcher interface {
	Me(ctx context.Context) (*api.Profile, error)
}

// Option mutates Store.
type Option func(s *Store)

// WithAuthenticator overrides the default api.AuthService.
func WithAuthenticator(auth Authenticator) Option {
	return func(s *Store) {
		s.auth = auth
	}
}

// WithProfileFetcher overrides the default api.UserService.
func WithProfileFetcher(users ProfileFetcher) Option {
	return func(s *Store) {
		s.users = users
	}
}

// WithLogger sets the store logger.
func WithLogger(logger mailnotify.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}
