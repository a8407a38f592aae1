package api

import (
	"context"

	"github.com/viant/mailnotify/client"
)

// Requester sends JSON requests to the backend; *client.Client implements it.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out interface{}, opts ...client.RequestOption) (*client.Response, error)
}

// Services groups every backend resource behind one requester.
type Services struct {
	Auth          *AuthService
	Users         *UserService
	EmailAccounts *EmailAccountService
	Channels      *ChannelService
	FilterRules   *FilterRuleService
	Notifications *NotificationService
}

// New creates all resource services.
func New(requester Requester) *Services {
	return &Services{
		Auth:          &AuthService{requester: requester},
		Users:         &UserService{requester: requester},
		EmailAccounts: &EmailAccountService{requester: requester},
		Channels:      &ChannelService{requester: requester},
		FilterRules:   &FilterRuleService{requester: requester},
		Notifications: &NotificationService{requester: requester},
	}
}
