package jwtx

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
}

// HS256Signer signs with the current secret of a KeySet.
type HS256Signer struct {
	keys *KeySet
}

// NewSignerHS256 creates a signer backed by keys.
func NewSignerHS256(keys *KeySet) *HS256Signer {
	return &HS256Signer{keys: keys}
}

func (s *HS256Signer) Alg() string { return jwt.SigningMethodHS256.Alg() }

func (s *HS256Signer) KID() string {
	kid, _ := s.keys.Current()
	return kid
}

// Sign encodes claims and stamps the kid header of the current secret.
func (s *HS256Signer) Sign(c Claims) (string, error) {
	kid, secret := s.keys.Current()
	if len(secret) == 0 {
		return "", ErrEmptyKeySet
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	token.Header["kid"] = kid

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// Issuer mints session tokens with a fixed issuer and lifetime.
type Issuer struct {
	signer Signer
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. A zero ttl falls back to DefaultTokenTTL.
func NewIssuer(signer Signer, issuer string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{signer: signer, issuer: issuer, ttl: ttl, now: time.Now}
}

// TTL returns the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a token for userID with role.
func (i *Issuer) Issue(userID, role string) (string, error) {
	return i.signer.Sign(NewClaims(userID, role, i.issuer, i.ttl, i.now()))
}
