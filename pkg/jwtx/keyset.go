package jwtx

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"sync"
)

// MinSecretLength is the shortest HMAC secret we accept (256 bits).
const MinSecretLength = 32

var (
	ErrNoKey       = errors.New("jwtx: key not found")
	ErrWeakSecret  = errors.New("jwtx: secret shorter than 32 bytes")
	ErrEmptyKeySet = errors.New("jwtx: no signing secret")
)

// KeySet holds the HMAC secrets known to this process. Exactly one secret is
// current and signs new tokens; the others are retired secrets kept only for
// verification so tokens issued before a rotation stay valid until expiry.
type KeySet struct {
	mu      sync.RWMutex
	current string
	secrets map[string][]byte // kid: secret
}

// KeyID derives a stable, non-reversible key id from a secret.
func KeyID(secret []byte) string {
	sum := sha256.Sum256(secret)
	return base64.RawURLEncoding.EncodeToString(sum[:6])
}

// NewKeySet builds a KeySet signing with current and verifying with current
// plus every previous secret.
func NewKeySet(current []byte, previous ...[]byte) (*KeySet, error) {
	if len(current) == 0 {
		return nil, ErrEmptyKeySet
	}
	if len(current) < MinSecretLength {
		return nil, ErrWeakSecret
	}

	ks := &KeySet{secrets: make(map[string][]byte, 1+len(previous))}
	ks.current = KeyID(current)
	ks.secrets[ks.current] = current

	for _, p := range previous {
		if len(p) == 0 {
			continue
		}
		ks.secrets[KeyID(p)] = p
	}
	return ks, nil
}

// Current returns the kid and secret used for signing.
func (k *KeySet) Current() (string, []byte) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.current, k.secrets[k.current]
}

// Get returns the secret registered under kid.
func (k *KeySet) Get(kid string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if s, ok := k.secrets[kid]; ok {
		return s, nil
	}
	return nil, ErrNoKey
}

// Rotate makes secret current while keeping the old secrets for verification.
func (k *KeySet) Rotate(secret []byte) error {
	if len(secret) < MinSecretLength {
		return ErrWeakSecret
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	kid := KeyID(secret)
	k.secrets[kid] = secret
	k.current = kid
	return nil
}

// Add registers a verification-only secret and returns its kid.
func (k *KeySet) Add(secret []byte) string {
	kid := KeyID(secret)
	k.mu.Lock()
	defer k.mu.Unlock()
	k.secrets[kid] = secret
	return kid
}

// KIDs lists every kid that verifies tokens, current included.
func (k *KeySet) KIDs() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]string, 0, len(k.secrets))
	for kid := range k.secrets {
		out = append(out, kid)
	}
	return out
}

// Retire drops a verification-only secret. The current secret cannot be retired.
func (k *KeySet) Retire(kid string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.secrets[kid]; !ok {
		return ErrNoKey
	}
	if kid == k.current {
		return errors.New("jwtx: cannot retire the current secret")
	}
	delete(k.secrets, kid)
	return nil
}

// IsReady returns true when a signing secret is loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.secrets[k.current]) > 0
}

// Len returns how many secrets verify tokens.
func (k *KeySet) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.secrets)
}
