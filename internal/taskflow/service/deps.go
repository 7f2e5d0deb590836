package service

import (
	"context"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
)

// PasswordHasher is satisfied by *cryptox.Hasher.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, encoded string) error
}

// TokenIssuer is satisfied by *jwtx.Issuer.
type TokenIssuer interface {
	Issue(userID, role string) (string, error)
}

// Notifier receives outbound events. Publish must not block and has no error
// to report back.
type Notifier interface {
	Publish(ctx context.Context, e domain.Event)
}

// AuthResult is returned by register, login and bootstrap.
type AuthResult struct {
	User                domain.PublicUser `json:"user"`
	Token               string            `json:"token"`
	ForcePasswordChange bool              `json:"forcePasswordChange"`
}

// timestamp is the creation time stamped on new records. Millisecond
// precision survives every store driver unchanged.
func timestamp() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
