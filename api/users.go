package api

import (
	"context"
	"net/http"

	"github.com/viant/mailnotify"
)

// UserService reads the authenticated user.
type UserService struct {
	requester Requester
}

// Me returns the profile of the authenticated user.
func (s *UserService) Me(ctx context.Context) (*Profile, error) {
	ret := &Profile{}
	if _, err := s.requester.Do(ctx, http.MethodGet, mailnotify.ProfilePath, nil, ret); err != nil {
		return nil, err
	}
	return ret, nil
}
