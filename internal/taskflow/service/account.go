package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
	"github.com/aussiebroadwan/taskflow/pkg/cryptox"
	"github.com/aussiebroadwan/taskflow/pkg/idx"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// AccountService handles self-service registration, login and profile.
type AccountService struct {
	Store  store.Store
	Hasher PasswordHasher
	Tokens TokenIssuer

	dummyOnce sync.Once
	dummyHash string
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	var v ValidationError
	checkName(&v, in.Name)
	checkEmail(&v, in.Email)
	checkNewPassword(&v, "password", in.Password)
	if err := v.err(); err != nil {
		return AuthResult{}, err
	}

	if _, err := s.Store.Users().GetUserByEmail(ctx, in.Email); err == nil {
		return AuthResult{}, ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return AuthResult{}, fmt.Errorf("lookup email: %w", err)
	}

	user, err := createUser(ctx, s.Store, s.Hasher, in.Name, in.Email, in.Password, domain.RoleUser)
	if err != nil {
		return AuthResult{}, err
	}

	slogx.FromContext(ctx).Info("user registered", "user_id", user.ID)
	return issueSession(s.Tokens, user)
}

func (s *AccountService) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	var v ValidationError
	checkEmail(&v, in.Email)
	if in.Password == "" {
		v.add("password", "password is required")
	}
	if err := v.err(); err != nil {
		return AuthResult{}, err
	}

	logger := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		// Spend the same hashing work as a real check so response timing does
		// not reveal whether the email is registered.
		_ = s.Hasher.VerifyPassword(in.Password, s.dummy())
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, fmt.Errorf("lookup email: %w", err)
	}

	if err := s.Hasher.VerifyPassword(in.Password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrUnsupportedHash) {
			logger.Warn("stored password hash is unreadable", "user_id", user.ID, "error", err)
		}
		return AuthResult{}, ErrInvalidCredentials
	}

	if cryptox.IsBcrypt(user.PasswordHash) {
		s.upgradeHash(ctx, user, in.Password)
	}

	logger.Info("user logged in", "user_id", user.ID)
	return issueSession(s.Tokens, user)
}

// upgradeHash rewrites a legacy bcrypt hash as argon2id. Failure only costs
// another bcrypt check on the next login.
func (s *AccountService) upgradeHash(ctx context.Context, user domain.User, password string) {
	hash, err := s.Hasher.HashPassword(password)
	if err == nil {
		err = s.Store.Users().UpdatePassword(ctx, user.ID, store.PasswordUpdate{
			Hash:        hash,
			ForceChange: user.ForcePasswordChange,
		})
	}
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to upgrade password hash", "user_id", user.ID, "error", err)
		return
	}
	slogx.FromContext(ctx).Info("upgraded legacy password hash", "user_id", user.ID)
}

func (s *AccountService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Hasher.HashPassword("taskflow-timing-equaliser")
	})
	return s.dummyHash
}

func (s *AccountService) GetProfile(ctx context.Context, userID string) (domain.PublicUser, error) {
	user, err := getUser(ctx, s.Store, userID)
	if err != nil {
		return domain.PublicUser{}, err
	}
	return user.Public(), nil
}

// ChangePassword replaces the caller's password and clears any forced change.
func (s *AccountService) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	var v ValidationError
	if in.CurrentPassword == "" {
		v.add("currentPassword", "current password is required")
	}
	checkNewPassword(&v, "newPassword", in.NewPassword)
	if err := v.err(); err != nil {
		return err
	}

	user, err := getUser(ctx, s.Store, userID)
	if err != nil {
		return err
	}
	if err := s.Hasher.VerifyPassword(in.CurrentPassword, user.PasswordHash); err != nil {
		return ErrInvalidCurrentPassword
	}

	hash, err := s.Hasher.HashPassword(in.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = s.Store.Users().UpdatePassword(ctx, userID, store.PasswordUpdate{Hash: hash})
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	slogx.FromContext(ctx).Info("password changed", "user_id", userID)
	return nil
}

func createUser(ctx context.Context, st store.Store, hasher PasswordHasher, name, email, password, role string) (domain.User, error) {
	hash, err := hasher.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := timestamp()
	user := domain.User{
		ID:           idx.New().String(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = st.Users().CreateUser(ctx, user)
	if errors.Is(err, store.ErrAlreadyExists) {
		return domain.User{}, ErrDuplicateEmail
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func getUser(ctx context.Context, st store.Store, id string) (domain.User, error) {
	user, err := st.Users().GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func issueSession(tokens TokenIssuer, user domain.User) (AuthResult, error) {
	token, err := tokens.Issue(user.ID, user.Role)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{
		User:                user.Public(),
		Token:               token,
		ForcePasswordChange: user.ForcePasswordChange,
	}, nil
}
