package taskflow_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/taskflow/pkg/taskflowsdk"
)

// TestJourney walks a team through tasks, comments, live updates and a
// password reset against one sqlite-backed instance.
func TestJourney(t *testing.T) {
	in := start(t, baseConfig(t))
	ctx := t.Context()

	admin := bootstrap(t, in.client)
	ann := register(t, in.client, "Ann Lee", "ann@x.com")
	bob := register(t, in.client, "Bob Stone", "bob@x.com")
	eve := register(t, in.client, "Eve Moss", "eve@x.com")

	adminWS := dialEvents(t, in, admin)
	bobWS := dialEvents(t, in, bob)
	eveWS := dialEvents(t, in, eve)

	task, err := ann.CreateTask(ctx, taskflowsdk.TaskRequest{
		Title:       taskflowsdk.String("Ship release"),
		Description: taskflowsdk.String("Cut and tag 1.0"),
		AssignedTo:  taskflowsdk.String(bob.User().ID),
		Tags:        taskflowsdk.Strings("release"),
	})
	require.NoError(t, err)

	require.Equal(t, "joined", join(t, bobWS, task.ID)["type"])
	require.Equal(t, "error", join(t, eveWS, task.ID)["type"])

	comment, err := ann.CreateComment(ctx, task.ID, "Changelog is ready")
	require.NoError(t, err)
	ev := waitFor(t, bobWS, "comment.created")
	require.Equal(t, "task:"+task.ID, ev["topic"])
	require.Equal(t, comment.ID, ev["data"].(map[string]any)["id"])

	_, err = bob.UpdateTask(ctx, task.ID, taskflowsdk.TaskRequest{Status: taskflowsdk.String("completed")})
	require.NoError(t, err)
	ev = waitFor(t, bobWS, "task.updated")
	require.Equal(t, "completed", ev["data"].(map[string]any)["status"])

	// Bob forgets his password; admins hear about it and the link is mailed.
	forgot, err := in.client.ForgotPassword(ctx, "bob@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, forgot.Token)

	ev = waitFor(t, adminWS, "password_reset.requested")
	require.Equal(t, "bob@x.com", ev["data"].(map[string]any)["email"])

	require.Eventually(t, func() bool { return len(in.outbox.Sent()) == 1 }, 2*time.Second, 10*time.Millisecond)
	sent := in.outbox.Sent()
	require.Equal(t, "bob@x.com", sent[0].To)
	require.Contains(t, sent[0].Body, forgot.ResetURL)

	require.NoError(t, in.client.VerifyResetToken(ctx, forgot.Token))
	require.NoError(t, in.client.CompleteReset(ctx, forgot.Token, "brandnew1"))

	_, err = in.client.Login(ctx, taskflowsdk.LoginRequest{Email: "bob@x.com", Password: "secret1"})
	var apiErr *taskflowsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	bob, err = in.client.Login(ctx, taskflowsdk.LoginRequest{Email: "bob@x.com", Password: "brandnew1"})
	require.NoError(t, err)

	// Deleting the task tells followers and takes the comments with it.
	require.NoError(t, ann.DeleteTask(ctx, task.ID))
	waitFor(t, bobWS, "task.deleted")

	_, err = bob.ListComments(ctx, task.ID)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestJourney_AdminDemotion(t *testing.T) {
	in := start(t, baseConfig(t))
	ctx := t.Context()

	admin := bootstrap(t, in.client)
	ann := register(t, in.client, "Ann Lee", "ann@x.com")

	promoted, err := admin.UpdateRole(ctx, ann.User().ID, "admin")
	require.NoError(t, err)
	require.Equal(t, "admin", promoted.Role)

	// A fresh login carries the admin role.
	ann, err = in.client.Login(ctx, taskflowsdk.LoginRequest{Email: "ann@x.com", Password: "secret1"})
	require.NoError(t, err)
	users, err := ann.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	_, err = admin.UpdateRole(ctx, ann.User().ID, "user")
	require.NoError(t, err)

	// The socket checks the stored role, so the old admin token no longer
	// joins the admin room.
	annWS := dialEvents(t, in, ann)
	_, err = in.client.ForgotPassword(ctx, "admin@taskflow.test")
	require.NoError(t, err)

	adminWS := dialEvents(t, in, admin)
	_, err = in.client.ForgotPassword(ctx, "admin@taskflow.test")
	require.NoError(t, err)
	waitFor(t, adminWS, "password_reset.requested")

	require.NoError(t, annWS.WriteJSON(map[string]string{"action": "ping"}))
	require.Equal(t, "error", next(t, annWS)["type"], "no reset events were queued ahead of the reply")
}

func TestRestart_KeepsAccountsAndSessions(t *testing.T) {
	cfg := baseConfig(t)

	first := start(t, cfg)
	ann := register(t, first.client, "Ann Lee", "ann@x.com")
	first.stop()

	// Same database and pepper file: the password still verifies and the
	// old token is still signed by a known secret.
	second := start(t, cfg)
	_, err := second.client.Login(t.Context(), taskflowsdk.LoginRequest{Email: "ann@x.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = second.client.NewSession(ann.Token()).Profile(t.Context())
	require.NoError(t, err)
	second.stop()

	// Rotating the secret keeps the old one for verification.
	rotated := cfg
	rotated.JWTSecret = "rotated-secret-0123456789abcdef0123"
	rotated.JWTPreviousSecrets = []string{jwtSecret}
	third := start(t, rotated)
	_, err = third.client.NewSession(ann.Token()).Profile(t.Context())
	require.NoError(t, err)
	third.stop()

	// Dropping it invalidates the old token.
	rotated.JWTPreviousSecrets = nil
	fourth := start(t, rotated)
	_, err = fourth.client.NewSession(ann.Token()).Profile(t.Context())
	var apiErr *taskflowsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 401, apiErr.StatusCode)
}
