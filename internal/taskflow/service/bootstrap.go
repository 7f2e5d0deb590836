package service

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

type BootstrapService struct {
	Store  store.Store
	Hasher PasswordHasher
	Tokens TokenIssuer
	Token  string // Pre-configured bootstrap token

	// RequireToken refuses bootstrap when Token is empty.
	RequireToken bool
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// Bootstrap creates the first administrator. Two concurrent calls against an
// empty store can both succeed; the store is left with two administrators.
func (s *BootstrapService) Bootstrap(ctx context.Context, req domain.BootstrapData) (AuthResult, error) {
	l := slogx.FromContext(ctx)

	bootstrapped, err := s.IsBootstrapped(ctx)
	if err != nil {
		return AuthResult{}, fmt.Errorf("check bootstrap state: %w", err)
	}
	if bootstrapped {
		return AuthResult{}, ErrAlreadyBootstrapped
	}

	if !s.authorized(req.Token) {
		l.Warn("unauthorized bootstrap attempt")
		return AuthResult{}, ErrBootstrapUnauthorized
	}

	var v ValidationError
	checkName(&v, req.Name)
	checkEmail(&v, req.Email)
	checkNewPassword(&v, "password", req.Password)
	if err := v.err(); err != nil {
		return AuthResult{}, err
	}

	user, err := createUser(ctx, s.Store, s.Hasher, req.Name, req.Email, req.Password, domain.RoleAdmin)
	if err != nil {
		return AuthResult{}, err
	}

	l.Info("system bootstrapped", "admin_user_id", user.ID)
	return issueSession(s.Tokens, user)
}

func (s *BootstrapService) authorized(presented string) bool {
	if s.Token == "" {
		return !s.RequireToken
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(s.Token)) == 1
}
