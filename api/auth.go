package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/viant/mailnotify"
	"github.com/viant/mailnotify/client"
	"github.com/viant/mailnotify/credential"
)

// Credentials is the login/register request body.
type Credentials struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type forgotPassword struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPassword struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// AuthService covers the unauthenticated auth endpoints; token refresh lives in the client.
type AuthService struct {
	requester Requester
}

// Login exchanges email and password for a credential pair. It does not persist the pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*credential.Pair, error) {
	return s.issue(ctx, "login", mailnotify.LoginPath, email, password)
}

// Register creates an account and returns its first credential pair.
// Input is not validated here; use ValidateRegistration before calling.
func (s *AuthService) Register(ctx context.Context, email, password string) (*credential.Pair, error) {
	return s.issue(ctx, "register", mailnotify.RegisterPath, email, password)
}

func (s *AuthService) issue(ctx context.Context, op, path, email, password string) (*credential.Pair, error) {
	pair := &credential.Pair{}
	_, err := s.requester.Do(ctx, http.MethodPost, path, &Credentials{Email: email, Password: password}, pair, client.Anonymous())
	if err != nil {
		if isRejection(err) {
			return nil, &mailnotify.AuthError{Op: op, Err: err}
		}
		return nil, err
	}
	if !pair.HasAccess() {
		return nil, &mailnotify.AuthError{Op: op, Err: errors.New("response carried no access token")}
	}
	return pair, nil
}

// ForgotPassword requests a reset link; the server answers the same whether or not the email exists.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	request := &forgotPassword{Email: email}
	if err := Validate(request); err != nil {
		return "", err
	}
	response := &messageResponse{}
	if _, err := s.requester.Do(ctx, http.MethodPost, mailnotify.ForgotPasswordPath, request, response, client.Anonymous()); err != nil {
		return "", err
	}
	return response.Message, nil
}

// ResetPassword sets a new password using the token from the reset link.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	request := &resetPassword{Token: token, NewPassword: newPassword}
	if err := Validate(request); err != nil {
		return "", err
	}
	response := &messageResponse{}
	if _, err := s.requester.Do(ctx, http.MethodPost, mailnotify.ResetPasswordPath, request, response, client.Anonymous()); err != nil {
		return "", err
	}
	return response.Message, nil
}

// ValidateRegistration checks email shape and password length the way the backend does.
func ValidateRegistration(email, password string) error {
	return Validate(&Credentials{Email: email, Password: password})
}

func isRejection(err error) bool {
	statusErr, ok := mailnotify.AsStatusError(err)
	if !ok {
		return false
	}
	switch statusErr.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusConflict, http.StatusUnprocessableEntity:
		return true
	}
	return false
}
