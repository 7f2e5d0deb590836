package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

// AdminService is the user management surface behind the admin gate. Callers
// are trusted to have passed the gate already.
type AdminService struct {
	Store  store.Store
	Hasher PasswordHasher
	Resets *ResetService
}

func (s *AdminService) ListUsers(ctx context.Context) ([]domain.PublicUser, error) {
	users, err := s.Store.Users().ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]domain.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

func (s *AdminService) GetUser(ctx context.Context, id string) (domain.PublicUser, error) {
	user, err := getUser(ctx, s.Store, id)
	if err != nil {
		return domain.PublicUser{}, err
	}
	return user.Public(), nil
}

func (s *AdminService) UpdateRole(ctx context.Context, id, role string) (domain.PublicUser, error) {
	if !domain.ValidRole(role) {
		return domain.PublicUser{}, ErrInvalidRole
	}

	err := s.Store.Users().UpdateRole(ctx, id, role)
	if errors.Is(err, store.ErrNotFound) {
		return domain.PublicUser{}, ErrUserNotFound
	}
	if err != nil {
		return domain.PublicUser{}, fmt.Errorf("update role: %w", err)
	}

	slogx.FromContext(ctx).Info("user role updated", "target_user_id", id, "role", role)
	return s.GetUser(ctx, id)
}

// ResetPassword sets a temporary password the user must change at next login.
func (s *AdminService) ResetPassword(ctx context.Context, id, newPassword string) (string, error) {
	var v ValidationError
	checkNewPassword(&v, "newPassword", newPassword)
	if err := v.err(); err != nil {
		return "", err
	}

	user, err := getUser(ctx, s.Store, id)
	if err != nil {
		return "", err
	}

	hash, err := s.Hasher.HashPassword(newPassword)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	err = s.Store.Users().UpdatePassword(ctx, id, store.PasswordUpdate{
		Hash:        hash,
		ForceChange: true,
		ClearReset:  true,
	})
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("update password: %w", err)
	}

	slogx.FromContext(ctx).Info("password reset by administrator", "target_user_id", id)
	return "password reset for " + user.Email, nil
}

// RequestPasswordResetLink issues a reset link on the user's behalf.
func (s *AdminService) RequestPasswordResetLink(ctx context.Context, id string) (ResetLink, error) {
	user, err := getUser(ctx, s.Store, id)
	if err != nil {
		return ResetLink{}, err
	}
	return s.Resets.issueLink(ctx, user, "admin")
}
