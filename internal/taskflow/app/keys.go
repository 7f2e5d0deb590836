package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/taskflow/pkg/cryptox"
	"github.com/aussiebroadwan/taskflow/pkg/jwtx"
)

var ErrMissingSecret = errors.New("JWT_SECRET must be set in production")

// InitKeys builds the session token key set from configuration.
//
// Outside production a missing JWT_SECRET is replaced by a random secret that
// lives only as long as the process, so every restart invalidates existing
// sessions. Previous secrets verify tokens issued before a rotation and are
// never used to sign.
func InitKeys(cfg Config, logger *slog.Logger) (*jwtx.KeySet, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		if cfg.IsProduction() {
			return nil, ErrMissingSecret
		}
		generated, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return nil, fmt.Errorf("generate ephemeral secret: %w", err)
		}
		secret = generated
		logger.Warn("JWT_SECRET not set, using an ephemeral secret; sessions end on restart")
	}

	previous := make([][]byte, 0, len(cfg.JWTPreviousSecrets))
	for _, p := range cfg.JWTPreviousSecrets {
		previous = append(previous, []byte(p))
	}

	keys, err := jwtx.NewKeySet([]byte(secret), previous...)
	if err != nil {
		return nil, fmt.Errorf("load JWT secrets: %w", err)
	}

	kid, _ := keys.Current()
	logger.Info("session signing secret loaded", "kid", kid, "verification_keys", keys.Len())
	return keys, nil
}

// ReloadKeys applies JWT_SECRET and JWT_PREVIOUS_SECRETS to a live key set.
// A changed JWT_SECRET becomes current and the old one verifies only while it
// stays listed in JWT_PREVIOUS_SECRETS. Secrets no longer configured stop
// verifying. An unset JWT_SECRET keeps the current signing secret.
func ReloadKeys(keys *jwtx.KeySet, cfg Config, logger *slog.Logger) error {
	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return ErrMissingSecret
		}
		logger.Warn("JWT_SECRET not set on reload, keeping the current signing secret")
	} else if err := keys.Rotate([]byte(cfg.JWTSecret)); err != nil {
		return fmt.Errorf("rotate JWT secret: %w", err)
	}

	current, _ := keys.Current()
	keep := map[string]bool{current: true}
	for _, p := range cfg.JWTPreviousSecrets {
		if p == "" {
			continue
		}
		keep[keys.Add([]byte(p))] = true
	}
	for _, kid := range keys.KIDs() {
		if keep[kid] {
			continue
		}
		if err := keys.Retire(kid); err != nil {
			return fmt.Errorf("retire JWT secret %s: %w", kid, err)
		}
		logger.Info("session secret retired", "kid", kid)
	}

	logger.Info("session secrets reloaded", "kid", current, "verification_keys", keys.Len())
	return nil
}

// InitHasher loads (or creates) the pepper and returns the password hasher.
func InitHasher(cfg Config) (*cryptox.Hasher, error) {
	pepper, err := cryptox.LoadPepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("load pepper: %w", err)
	}
	return cryptox.NewHasher(pepper), nil
}
