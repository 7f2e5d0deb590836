package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/taskflow/pkg/jwtx"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

// Messages returned by the authentication gate.
const (
	MsgNoToken      = "no token, authorization denied"
	MsgInvalidToken = "token is not valid"
)

// AuthnMiddleware verifies the bearer token and attaches the caller's
// Identity. It never consults the user store, so the role is as fresh as the
// token.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "", MsgNoToken)
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("jwt verify failed", "err", err)
				writeBearerError(w, "invalid_token", MsgInvalidToken)
				return
			}

			ctx = WithIdentity(ctx, Identity{UserID: claims.UserID, Role: claims.Role})
			ctx = slogx.WithUserID(ctx, claims.UserID)
			slogx.Annotate(w, slogx.FromContext(ctx))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RFC 6750-compliant challenge plus the JSON error body.
func writeBearerError(w http.ResponseWriter, code, message string) {
	challenge := `Bearer realm="taskflow"`
	if code != "" {
		challenge += `, error="` + code + `"`
	}
	w.Header().Set("WWW-Authenticate", challenge)
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}
