package taskflowsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Session makes authenticated calls with one bearer token. Tokens are not
// refreshed; log in again after expiry.
type Session struct {
	client *SDKClient
	token  string

	user                User
	forcePasswordChange bool
}

func newSession(c *SDKClient, res AuthResponse) *Session {
	return &Session{client: c, token: res.Token, user: res.User, forcePasswordChange: res.ForcePasswordChange}
}

func (s *Session) Token() string { return s.token }

// User is the account as returned at login. Use Profile for a fresh copy.
func (s *Session) User() User { return s.user }

func (s *Session) ForcePasswordChange() bool { return s.forcePasswordChange }

func (s *Session) call(ctx context.Context, method, path string, body, target any, expectedStatus int) error {
	return s.client.call(ctx, method, path, s.token, body, target, expectedStatus)
}

func (s *Session) Profile(ctx context.Context) (*User, error) {
	var res UserResponse
	if err := s.call(ctx, http.MethodGet, "/api/auth/profile", nil, &res, http.StatusOK); err != nil {
		return nil, err
	}
	return &res.User, nil
}

func (s *Session) ChangePassword(ctx context.Context, current, next string) error {
	req := ChangePasswordRequest{CurrentPassword: current, NewPassword: next}
	if err := s.call(ctx, http.MethodPut, "/api/auth/change-password", req, nil, http.StatusOK); err != nil {
		return err
	}
	s.forcePasswordChange = false
	return nil
}

func escape(id string) string { return url.PathEscape(id) }
