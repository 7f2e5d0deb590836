package httpx_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/taskflow/pkg/httpx"
	"github.com/aussiebroadwan/taskflow/pkg/jwtx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newIssuerVerifier(t *testing.T) (*jwtx.Issuer, jwtx.Verifier) {
	t.Helper()
	ks, err := jwtx.NewKeySet(testSecret)
	require.NoError(t, err)
	return jwtx.NewIssuer(jwtx.NewSignerHS256(ks), "", time.Hour), jwtx.NewVerifierHS256(ks, "")
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httpx.ErrorResponse {
	t.Helper()
	var body httpx.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func identityEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := httpx.MustIdentity(r.Context())
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"userId": id.UserID, "role": id.Role})
	})
}

func TestAuthnMiddleware(t *testing.T) {
	iss, ver := newIssuerVerifier(t)
	h := httpx.AuthnMiddleware(ver)(identityEcho())

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, httpx.MsgNoToken, decodeError(t, rec).Message)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	})

	t.Run("non bearer scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, httpx.MsgNoToken, decodeError(t, rec).Message)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decodeError(t, rec)
		require.Equal(t, httpx.CodeUnauthorized, body.Error)
		require.Equal(t, httpx.MsgInvalidToken, body.Message)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
	})

	t.Run("valid token attaches identity", func(t *testing.T) {
		tok, err := iss.Issue("u1", httpx.RoleUser)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"userId":"u1","role":"user"}`, rec.Body.String())
	})
}

type fakeRoles map[string]string

func (f fakeRoles) lookup(_ context.Context, id string) (string, bool, error) {
	role, ok := f[id]
	return role, ok, nil
}

func serveAdmin(t *testing.T, lookup httpx.RoleLookup, opts httpx.AdminOptions, id httpx.Identity) *httptest.ResponseRecorder {
	t.Helper()
	h := httpx.RequireAdmin(lookup, opts)(identityEcho())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(httpx.WithIdentity(req.Context(), id))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequireAdmin(t *testing.T) {
	roles := fakeRoles{"admin1": "admin", "user1": "user", "demoted": "user"}

	t.Run("admin claim takes the fast path", func(t *testing.T) {
		called := false
		lookup := func(context.Context, string) (string, bool, error) {
			called = true
			return "", false, nil
		}
		rec := serveAdmin(t, lookup, httpx.AdminOptions{}, httpx.Identity{UserID: "ghost", Role: "admin"})
		require.Equal(t, http.StatusOK, rec.Code)
		require.False(t, called)
	})

	t.Run("user claim with stored user role is forbidden", func(t *testing.T) {
		rec := serveAdmin(t, roles.lookup, httpx.AdminOptions{}, httpx.Identity{UserID: "user1", Role: "user"})
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, httpx.CodeForbidden, decodeError(t, rec).Error)
	})

	t.Run("promoted user passes and role is refreshed", func(t *testing.T) {
		rec := serveAdmin(t, roles.lookup, httpx.AdminOptions{}, httpx.Identity{UserID: "admin1", Role: "user"})
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"userId":"admin1","role":"admin"}`, rec.Body.String())
	})

	t.Run("unknown user is not found", func(t *testing.T) {
		rec := serveAdmin(t, roles.lookup, httpx.AdminOptions{}, httpx.Identity{UserID: "nobody", Role: "user"})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("stale admin claim passes without strict mode", func(t *testing.T) {
		rec := serveAdmin(t, roles.lookup, httpx.AdminOptions{}, httpx.Identity{UserID: "demoted", Role: "admin"})
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("strict mode rejects stale admin claim", func(t *testing.T) {
		rec := serveAdmin(t, roles.lookup, httpx.AdminOptions{Strict: true}, httpx.Identity{UserID: "demoted", Role: "admin"})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("lookup failure is a server error", func(t *testing.T) {
		lookup := func(context.Context, string) (string, bool, error) { return "", false, errors.New("db down") }
		rec := serveAdmin(t, lookup, httpx.AdminOptions{}, httpx.Identity{UserID: "user1", Role: "user"})
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.NotContains(t, rec.Body.String(), "db down")
	})

	t.Run("no identity is unauthorized", func(t *testing.T) {
		h := httpx.RequireAdmin(roles.lookup, httpx.AdminOptions{})(identityEcho())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler(), mw("a"), mw("b"), mw("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.WriteError(rec, http.StatusBadRequest, httpx.CodeValidation, "validation failed",
		httpx.FieldError{Field: "email", Message: "please include a valid email"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.JSONEq(t, `{"error":"validation_error","message":"validation failed",
		"errors":[{"field":"email","message":"please include a valid email"}]}`, rec.Body.String())
}

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := httpx.NewMetrics(reg, "test")

	mux := http.NewServeMux()
	mux.Handle("GET /items/{id}", okHandler())
	h := httpx.Chain(mux, m.Middleware())

	for _, path := range []string{"/items/1", "/items/2", "/missing"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	expected := `
# HELP test_http_requests_total HTTP requests by route, method and status.
# TYPE test_http_requests_total counter
test_http_requests_total{method="GET",route="GET /items/{id}",status="200"} 2
test_http_requests_total{method="GET",route="unmatched",status="404"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_http_requests_total"))
}
