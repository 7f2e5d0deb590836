package taskflowsdk

import (
	"context"
	"net/http"
)

// Admin calls fail with 403 unless the session's user is an administrator.

func (s *Session) ListUsers(ctx context.Context) ([]User, error) {
	var res UsersResponse
	if err := s.call(ctx, http.MethodGet, "/api/admin/users", nil, &res, http.StatusOK); err != nil {
		return nil, err
	}
	return res.Users, nil
}

func (s *Session) GetUser(ctx context.Context, id string) (*User, error) {
	var res UserResponse
	if err := s.call(ctx, http.MethodGet, "/api/admin/users/"+escape(id), nil, &res, http.StatusOK); err != nil {
		return nil, err
	}
	return &res.User, nil
}

func (s *Session) UpdateRole(ctx context.Context, id, role string) (*User, error) {
	var res RoleUpdateResponse
	err := s.call(ctx, http.MethodPut, "/api/admin/users/"+escape(id)+"/role", UpdateRoleRequest{Role: role}, &res, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &res.User, nil
}

func (s *Session) ResetPassword(ctx context.Context, id, password string) error {
	return s.call(ctx, http.MethodPut, "/api/admin/users/"+escape(id)+"/password", AdminPasswordRequest{NewPassword: password}, nil, http.StatusOK)
}

func (s *Session) RequestPasswordResetLink(ctx context.Context, id string) (*ResetLinkResponse, error) {
	var res ResetLinkResponse
	if err := s.call(ctx, http.MethodPost, "/api/admin/users/"+escape(id)+"/reset-password-email", nil, &res, http.StatusOK); err != nil {
		return nil, err
	}
	return &res, nil
}
