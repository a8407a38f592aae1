package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const emailAccountsPath = "/email-accounts"

// EmailAccountService manages connected mailboxes.
type EmailAccountService struct {
	requester Requester
}

type connectResponse struct {
	AuthorizationURL string `json:"authorizationUrl"`
}

// Connect starts the Gmail OAuth flow and returns the URL the user must visit.
func (s *EmailAccountService) Connect(ctx context.Context) (string, error) {
	ret := &connectResponse{}
	if _, err := s.requester.Do(ctx, http.MethodPost, emailAccountsPath+"/connect", nil, ret); err != nil {
		return "", err
	}
	return ret.AuthorizationURL, nil
}

// List returns every connected account.
func (s *EmailAccountService) List(ctx context.Context) ([]*EmailAccount, error) {
	var ret []*EmailAccount
	if _, err := s.requester.Do(ctx, http.MethodGet, emailAccountsPath, nil, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// Get returns one account.
func (s *EmailAccountService) Get(ctx context.Context, id uuid.UUID) (*EmailAccount, error) {
	return s.do(ctx, http.MethodGet, accountPath(id, ""))
}

// Pause stops scanning an account.
func (s *EmailAccountService) Pause(ctx context.Context, id uuid.UUID) (*EmailAccount, error) {
	return s.do(ctx, http.MethodPatch, accountPath(id, "/pause"))
}

// Resume restarts scanning an account.
func (s *EmailAccountService) Resume(ctx context.Context, id uuid.UUID) (*EmailAccount, error) {
	return s.do(ctx, http.MethodPatch, accountPath(id, "/resume"))
}

// Disconnect removes an account.
func (s *EmailAccountService) Disconnect(ctx context.Context, id uuid.UUID) error {
	_, err := s.requester.Do(ctx, http.MethodDelete, accountPath(id, ""), nil, nil)
	return err
}

func (s *EmailAccountService) do(ctx context.Context, method, path string) (*EmailAccount, error) {
	ret := &EmailAccount{}
	if _, err := s.requester.Do(ctx, method, path, nil, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func accountPath(id uuid.UUID, suffix string) string {
	return emailAccountsPath + "/" + id.String() + suffix
}
