package httpx

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

// RoleLookup returns the stored role of userID. found is false when the user
// does not exist.
type RoleLookup func(ctx context.Context, userID string) (role string, found bool, err error)

// AdminOptions configures RequireAdmin.
type AdminOptions struct {
	// Strict disables the token fast path: every request is checked against
	// the store, so demoted admins lose access immediately.
	Strict bool
}

// RequireAdmin lets through callers whose role is admin. A token carrying the
// admin claim passes without a lookup unless opts.Strict is set. Otherwise the
// stored role decides: unknown user 404, non-admin 403, admin passes with the
// identity's role refreshed.
func RequireAdmin(lookup RoleLookup, opts AdminOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id, ok := IdentityFrom(ctx)
			if !ok {
				writeBearerError(w, "", MsgNoToken)
				return
			}

			if id.IsAdmin() && !opts.Strict {
				next.ServeHTTP(w, r)
				return
			}

			role, found, err := lookup(ctx, id.UserID)
			switch {
			case err != nil:
				slogx.FromContext(ctx).Error("admin role lookup failed", "err", err)
				WriteError(w, http.StatusInternalServerError, CodeServerError, "server error")
				return
			case !found:
				WriteError(w, http.StatusNotFound, CodeNotFound, "user not found")
				return
			case role != RoleAdmin:
				WriteError(w, http.StatusForbidden, CodeForbidden, "access denied, admin privileges required")
				return
			}

			if !id.IsAdmin() {
				id.Role = RoleAdmin
				ctx = WithIdentity(ctx, id)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}
