package http_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/pkg/jwtx"
	"github.com/aussiebroadwan/taskflow/pkg/taskflowsdk"
)

// signFor mints a session token outside the API, for identities the store
// may not agree with.
func signFor(t *testing.T, userID, role string) string {
	t.Helper()
	keys, err := jwtx.NewKeySet([]byte(testSecret))
	require.NoError(t, err)
	tok, err := jwtx.NewIssuer(jwtx.NewSignerHS256(keys), "taskflow", 0).Issue(userID, role)
	require.NoError(t, err)
	return tok
}

func TestBootstrap(t *testing.T) {
	api := newTestAPI(t)

	_, err := api.client.Bootstrap(t.Context(), taskflowsdk.BootstrapRequest{
		Token: "wrong", Name: "Administrator", Email: adminEmail, Password: adminPassword,
	})
	requireStatus(t, err, http.StatusForbidden)

	admin := api.bootstrap(t)
	require.Equal(t, "admin", admin.User().Role)

	_, err = api.client.Bootstrap(t.Context(), taskflowsdk.BootstrapRequest{
		Token: bootstrapToken, Name: "Second", Email: "second@taskflow.test", Password: adminPassword,
	})
	requireStatus(t, err, http.StatusConflict)
}

func TestAdmin_NonAdminForbidden(t *testing.T) {
	api := newTestAPI(t)
	api.bootstrap(t)
	ann := api.register(t, "Ann Lee", "ann@x.com")

	_, err := ann.ListUsers(t.Context())
	apiErr := requireStatus(t, err, http.StatusForbidden)
	require.Equal(t, "access denied, admin privileges required", apiErr.Message)

	_, err = api.client.NewSession("").ListUsers(t.Context())
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestAdmin_ListAndGetUsers(t *testing.T) {
	api := newTestAPI(t)
	admin := api.bootstrap(t)
	ann := api.register(t, "Ann Lee", "ann@x.com")

	users, err := admin.ListUsers(t.Context())
	require.NoError(t, err)
	require.Len(t, users, 2)

	u, err := admin.GetUser(t.Context(), ann.User().ID)
	require.NoError(t, err)
	require.Equal(t, "Ann Lee", u.Name)

	_, err = admin.GetUser(t.Context(), "01HZZZZZZZZZZZZZZZZZZZZZZZ")
	requireStatus(t, err, http.StatusNotFound)
	_, err = admin.GetUser(t.Context(), "not-a-ulid")
	requireStatus(t, err, http.StatusNotFound)
}

func TestAdmin_GetUserWithImportedObjectID(t *testing.T) {
	api := newTestAPI(t)
	admin := api.bootstrap(t)

	const importedID = "64b7f0c2e4b0a1b2c3d4e5f6"
	require.NoError(t, api.store.Users().CreateUser(t.Context(), domain.User{
		ID:           importedID,
		Name:         "Old Timer",
		Email:        "old@x.com",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuuJ0Ww5cQ7Bq1xq5kTBo3h0bB5o4Zq9W2",
		Role:         domain.RoleUser,
	}))

	u, err := admin.GetUser(t.Context(), importedID)
	require.NoError(t, err)
	require.Equal(t, "old@x.com", u.Email)

	require.NoError(t, admin.ResetPassword(t.Context(), importedID, "fresh-pass"))
	_, err = api.client.Login(t.Context(), taskflowsdk.LoginRequest{Email: "old@x.com", Password: "fresh-pass"})
	require.NoError(t, err)
}

func TestAdmin_UpdateRole_StalePrivilege(t *testing.T) {
	api := newTestAPI(t)
	admin := api.bootstrap(t)
	ann := api.register(t, "Ann Lee", "ann@x.com")

	_, err := admin.UpdateRole(t.Context(), ann.User().ID, "superuser")
	requireStatus(t, err, http.StatusBadRequest)

	u, err := admin.UpdateRole(t.Context(), ann.User().ID, "admin")
	require.NoError(t, err)
	require.Equal(t, "admin", u.Role)

	// Ann's user-role token is upgraded by the store lookup.
	_, err = ann.ListUsers(t.Context())
	require.NoError(t, err)

	// Demote: a fresh admin token keeps working until it expires.
	promoted, err := api.client.Login(t.Context(), taskflowsdk.LoginRequest{Email: "ann@x.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = admin.UpdateRole(t.Context(), ann.User().ID, "user")
	require.NoError(t, err)
	_, err = promoted.ListUsers(t.Context())
	require.NoError(t, err)
}

func TestAdmin_StrictCheckRevokesImmediately(t *testing.T) {
	api := newTestAPI(t, func(o *apiOptions) { o.strict = true })
	admin := api.bootstrap(t)
	api.register(t, "Ann Lee", "ann@x.com")

	promoted := api.client.NewSession(signFor(t, admin.User().ID, "admin"))
	_, err := promoted.ListUsers(t.Context())
	require.NoError(t, err)

	// A forged admin token for a plain user is refused by the store check.
	users, err := admin.ListUsers(t.Context())
	require.NoError(t, err)
	var annID string
	for _, u := range users {
		if u.Email == "ann@x.com" {
			annID = u.ID
		}
	}
	forged := api.client.NewSession(signFor(t, annID, "admin"))
	_, err = forged.ListUsers(t.Context())
	requireStatus(t, err, http.StatusForbidden)
}

func TestAdmin_ResetPasswordForcesChange(t *testing.T) {
	api := newTestAPI(t)
	admin := api.bootstrap(t)
	bob := api.register(t, "Bob Stone", "bob@x.com")

	err := admin.ResetPassword(t.Context(), bob.User().ID, "123")
	apiErr := requireStatus(t, err, http.StatusBadRequest)
	require.NotEmpty(t, apiErr.Field("newPassword"))

	require.NoError(t, admin.ResetPassword(t.Context(), bob.User().ID, "temp123"))

	s, err := api.client.Login(t.Context(), taskflowsdk.LoginRequest{Email: "bob@x.com", Password: "temp123"})
	require.NoError(t, err)
	require.True(t, s.ForcePasswordChange())

	require.NoError(t, s.ChangePassword(t.Context(), "temp123", "chosen1"))
	s, err = api.client.Login(t.Context(), taskflowsdk.LoginRequest{Email: "bob@x.com", Password: "chosen1"})
	require.NoError(t, err)
	require.False(t, s.ForcePasswordChange())

	requireStatus(t, admin.ResetPassword(t.Context(), "01HZZZZZZZZZZZZZZZZZZZZZZZ", "temp123"), http.StatusNotFound)
}

func TestAdmin_ResetPasswordByBody(t *testing.T) {
	api := newTestAPI(t)
	admin := api.bootstrap(t)
	bob := api.register(t, "Bob Stone", "bob@x.com")

	resp := doJSON(t, http.MethodPost, api.srv.URL+"/api/admin/users/reset-password", admin.Token(),
		taskflowsdk.AdminPasswordRequest{UserID: bob.User().ID, NewPassword: "temp123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, api.srv.URL+"/api/admin/users/reset-password", admin.Token(),
		taskflowsdk.AdminPasswordRequest{UserID: "nope", NewPassword: "temp123"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	s, err := api.client.Login(t.Context(), taskflowsdk.LoginRequest{Email: "bob@x.com", Password: "temp123"})
	require.NoError(t, err)
	require.True(t, s.ForcePasswordChange())
}

func TestAdmin_ResetLink(t *testing.T) {
	api := newTestAPI(t)
	admin := api.bootstrap(t)
	carl := api.register(t, "Carl Diaz", "carl@x.com")

	link, err := admin.RequestPasswordResetLink(t.Context(), carl.User().ID)
	require.NoError(t, err)
	require.True(t, link.EmailSent)
	require.NotEmpty(t, link.Token)
	require.Equal(t, "http://localhost:3000/reset-password/"+link.Token, link.ResetURL)

	u, err := admin.GetUser(t.Context(), carl.User().ID)
	require.NoError(t, err)
	require.True(t, u.PasswordResetRequested)

	require.NoError(t, api.client.CompleteReset(t.Context(), link.Token, "carl-new"))
	u, err = admin.GetUser(t.Context(), carl.User().ID)
	require.NoError(t, err)
	require.False(t, u.PasswordResetRequested)

	_, err = admin.RequestPasswordResetLink(t.Context(), "01HZZZZZZZZZZZZZZZZZZZZZZZ")
	requireStatus(t, err, http.StatusNotFound)
}

func TestAdmin_ResetLinkProduction(t *testing.T) {
	api := newTestAPI(t, func(o *apiOptions) { o.production = true })
	admin := api.bootstrap(t)
	carl := api.register(t, "Carl Diaz", "carl@x.com")

	link, err := admin.RequestPasswordResetLink(t.Context(), carl.User().ID)
	require.NoError(t, err)
	require.Empty(t, link.Token)
	require.Empty(t, link.ResetURL)
	require.True(t, link.EmailSent)
}
