package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/mail"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
	"github.com/aussiebroadwan/taskflow/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

const missingID = "01HZZZZZZZZZZZZZZZZZZZZZZZ"

func TestAdmin_ListAndGet(t *testing.T) {
	e := newEnv(t)
	ann := e.register(t, "Ann Lee", "ann@x.com")
	e.register(t, "Bob Ray", "bob@x.com")
	ctx := context.Background()

	users, err := e.admin.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, ann.ID, users[0].ID)

	u, err := e.admin.GetUser(ctx, ann.ID)
	require.NoError(t, err)
	require.Equal(t, "ann@x.com", u.Email)

	_, err = e.admin.GetUser(ctx, missingID)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestAdmin_UpdateRole(t *testing.T) {
	e := newEnv(t)
	ann := e.register(t, "Ann Lee", "ann@x.com")
	ctx := context.Background()

	u, err := e.admin.UpdateRole(ctx, ann.ID, domain.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, u.Role)

	got, err := e.admin.GetUser(ctx, ann.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, got.Role)

	_, err = e.admin.UpdateRole(ctx, ann.ID, "invalid")
	require.ErrorIs(t, err, ErrInvalidRole)
	got, err = e.admin.GetUser(ctx, ann.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, got.Role, "invalid role must leave the store untouched")

	_, err = e.admin.UpdateRole(ctx, missingID, domain.RoleUser)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestAdmin_ResetPasswordForcesChange(t *testing.T) {
	e := newEnv(t)
	bob := e.register(t, "Bob Ray", "bob@x.com")
	ctx := context.Background()

	_, err := e.admin.ResetPassword(ctx, bob.ID, "short")
	requireFields(t, err, "newPassword")

	_, err = e.admin.ResetPassword(ctx, missingID, "newpass1")
	require.ErrorIs(t, err, ErrUserNotFound)

	msg, err := e.admin.ResetPassword(ctx, bob.ID, "newpass1")
	require.NoError(t, err)
	require.Contains(t, msg, "bob@x.com")

	u, err := e.admin.GetUser(ctx, bob.ID)
	require.NoError(t, err)
	require.True(t, u.ForcePasswordChange)
	require.False(t, u.PasswordResetRequested)

	res, err := e.accounts.Login(ctx, LoginInput{Email: "bob@x.com", Password: "newpass1"})
	require.NoError(t, err)
	require.True(t, res.ForcePasswordChange)

	require.NoError(t, e.accounts.ChangePassword(ctx, bob.ID, ChangePasswordInput{CurrentPassword: "newpass1", NewPassword: "bobs-own"}))

	res, err = e.accounts.Login(ctx, LoginInput{Email: "bob@x.com", Password: "bobs-own"})
	require.NoError(t, err)
	require.False(t, res.ForcePasswordChange)
}

func TestAdmin_ResetLinkOutsideProduction(t *testing.T) {
	e := newEnv(t)
	carl := e.register(t, "Carl Ng", "carl@x.com")
	ctx := context.Background()

	link, err := e.admin.RequestPasswordResetLink(ctx, carl.ID)
	require.NoError(t, err)
	require.True(t, link.EmailSent)
	require.Len(t, link.Token, 64)
	require.Equal(t, "http://localhost:3000/reset-password/"+link.Token, link.ResetURL)

	u, err := e.store.Users().GetUserByID(ctx, carl.ID)
	require.NoError(t, err)
	require.True(t, u.PasswordResetRequested)
	require.NotNil(t, u.ResetTokenHash)
	require.Equal(t, cryptox.FingerprintToken(link.Token), *u.ResetTokenHash, "only the fingerprint is stored")
	require.WithinDuration(t, time.Now().Add(time.Hour), *u.ResetTokenExpires, time.Minute)

	events := e.notifier.Events()
	require.Len(t, events, 1)
	require.Equal(t, domain.EventPasswordResetRequested, events[0].Type)
	require.Equal(t, domain.TopicAdmins, events[0].Topic)

	require.Len(t, e.mailer.sent, 1)
	require.Equal(t, "carl@x.com", e.mailer.sent[0].To)
	require.Contains(t, e.mailer.sent[0].Body, link.ResetURL)

	_, err = e.admin.RequestPasswordResetLink(ctx, missingID)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestAdmin_ResetLinkInProduction(t *testing.T) {
	e := newEnv(t)
	carl := e.register(t, "Carl Ng", "carl@x.com")
	e.resets.Config.ExposeToken = false
	e.mailer.err = errors.New("relay down")

	link, err := e.admin.RequestPasswordResetLink(context.Background(), carl.ID)
	require.NoError(t, err, "mail failure must not fail the request")
	require.False(t, link.EmailSent)
	require.Empty(t, link.Token)
	require.Empty(t, link.ResetURL)
	require.Len(t, e.notifier.Events(), 1)
}

func TestForgotPassword(t *testing.T) {
	e := newEnv(t)
	e.register(t, "Ann Lee", "ann@x.com")
	ctx := context.Background()

	known, err := e.resets.ForgotPassword(ctx, "ann@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, known.Token)

	unknown, err := e.resets.ForgotPassword(ctx, "ghost@x.com")
	require.NoError(t, err)
	require.Empty(t, unknown.Token)
	require.Equal(t, known.Message, unknown.Message)

	e.resets.Config.ExposeToken = false
	known, err = e.resets.ForgotPassword(ctx, "ann@x.com")
	require.NoError(t, err)
	require.Equal(t, unknown, known, "production responses must not differ by account existence")

	_, err = e.resets.ForgotPassword(ctx, "nope")
	requireFields(t, err, "email")
}

func TestCompleteReset(t *testing.T) {
	e := newEnv(t)
	ann := e.register(t, "Ann Lee", "ann@x.com")
	ctx := context.Background()

	_, err := e.admin.ResetPassword(ctx, ann.ID, "temp123")
	require.NoError(t, err)

	res, err := e.resets.ForgotPassword(ctx, "ann@x.com")
	require.NoError(t, err)

	require.NoError(t, e.resets.VerifyResetToken(ctx, res.Token))
	require.ErrorIs(t, e.resets.VerifyResetToken(ctx, "deadbeef"), ErrInvalidResetToken)
	require.ErrorIs(t, e.resets.VerifyResetToken(ctx, ""), ErrInvalidResetToken)

	requireFields(t, e.resets.CompleteReset(ctx, res.Token, "x"), "password")
	require.NoError(t, e.resets.CompleteReset(ctx, res.Token, "fresh-pass"))

	u, err := e.store.Users().GetUserByID(ctx, ann.ID)
	require.NoError(t, err)
	require.False(t, u.ForcePasswordChange)
	require.False(t, u.PasswordResetRequested)
	require.Nil(t, u.ResetTokenHash)

	_, err = e.accounts.Login(ctx, LoginInput{Email: "ann@x.com", Password: "fresh-pass"})
	require.NoError(t, err)

	require.ErrorIs(t, e.resets.CompleteReset(ctx, res.Token, "again-pass"), ErrInvalidResetToken, "tokens are single use")
}

// lateUsers runs afterLookup once a reset token lookup has returned, so a
// competing redemption can land between lookup and write.
type lateUsers struct {
	store.Users
	afterLookup func()
}

func (u lateUsers) GetUserByResetToken(ctx context.Context, tokenHash string) (domain.User, error) {
	user, err := u.Users.GetUserByResetToken(ctx, tokenHash)
	u.afterLookup()
	return user, err
}

type lateStore struct {
	store.Store
	users lateUsers
}

func (s lateStore) Users() store.Users { return s.users }

func TestCompleteReset_ConcurrentRedemptionWinsOnce(t *testing.T) {
	e := newEnv(t)
	e.register(t, "Ann Lee", "ann@x.com")
	ctx := context.Background()

	res, err := e.resets.ForgotPassword(ctx, "ann@x.com")
	require.NoError(t, err)

	var first error
	slow := &ResetService{
		Store: lateStore{Store: e.store, users: lateUsers{
			Users:       e.store.Users(),
			afterLookup: func() { first = e.resets.CompleteReset(ctx, res.Token, "first-pass") },
		}},
		Hasher: e.hasher,
	}

	require.ErrorIs(t, slow.CompleteReset(ctx, res.Token, "second-pass"), ErrInvalidResetToken)
	require.NoError(t, first)

	_, err = e.accounts.Login(ctx, LoginInput{Email: "ann@x.com", Password: "first-pass"})
	require.NoError(t, err)
	_, err = e.accounts.Login(ctx, LoginInput{Email: "ann@x.com", Password: "second-pass"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

type blockingMailer struct {
	release chan struct{}
	sent    atomic.Int32
}

func (m *blockingMailer) Send(ctx context.Context, _ mail.Message) error {
	<-m.release
	if err := ctx.Err(); err != nil {
		return err
	}
	m.sent.Add(1)
	return nil
}

func TestForgotPassword_MailsInBackground(t *testing.T) {
	e := newEnv(t)
	e.register(t, "Ann Lee", "ann@x.com")
	mailer := &blockingMailer{release: make(chan struct{})}
	e.resets.Mailer = mailer

	ctx, cancel := context.WithCancel(context.Background())
	res, err := e.resets.ForgotPassword(ctx, "ann@x.com")
	require.NoError(t, err, "returns while the mailer is still blocked")
	require.Equal(t, forgotPasswordMessage, res.Message)
	cancel()
	require.Zero(t, mailer.sent.Load())

	close(mailer.release)
	e.resets.Wait()
	require.EqualValues(t, 1, mailer.sent.Load(), "the send outlives the request")
}

func TestCompleteReset_Expired(t *testing.T) {
	e := newEnv(t)
	e.register(t, "Ann Lee", "ann@x.com")
	ctx := context.Background()

	res, err := e.resets.ForgotPassword(ctx, "ann@x.com")
	require.NoError(t, err)

	e.resets.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	require.ErrorIs(t, e.resets.VerifyResetToken(ctx, res.Token), ErrInvalidResetToken)
	require.ErrorIs(t, e.resets.CompleteReset(ctx, res.Token, "fresh-pass"), ErrInvalidResetToken)
}

func TestHousekeeping_ClearsExpiredTokens(t *testing.T) {
	e := newEnv(t)
	ann := e.register(t, "Ann Lee", "ann@x.com")
	bob := e.register(t, "Bob Ray", "bob@x.com")
	ctx := context.Background()

	require.NoError(t, e.store.Users().SetResetToken(ctx, ann.ID, "expired", time.Now().Add(-time.Minute)))
	require.NoError(t, e.store.Users().SetResetToken(ctx, bob.ID, "live", time.Now().Add(time.Hour)))

	hk := NewHousekeepingService(e.store, nil, 0)
	require.Equal(t, time.Hour, hk.Interval)
	require.EqualValues(t, 1, hk.Cleanup(ctx))

	u, err := e.store.Users().GetUserByID(ctx, ann.ID)
	require.NoError(t, err)
	require.Nil(t, u.ResetTokenHash)
	require.True(t, u.PasswordResetRequested)

	u, err = e.store.Users().GetUserByID(ctx, bob.ID)
	require.NoError(t, err)
	require.NotNil(t, u.ResetTokenHash)
}

func TestHousekeeping_StartStop(t *testing.T) {
	e := newEnv(t)
	hk := NewHousekeepingService(e.store, nil, time.Millisecond)
	hk.Start()
	time.Sleep(5 * time.Millisecond)
	hk.Stop()
}

func TestValidationError_Message(t *testing.T) {
	var v ValidationError
	require.NoError(t, v.err())
	v.add("email", "invalid email format")
	v.add("password", "too short")
	require.True(t, strings.HasPrefix(v.Error(), "validation error: email: invalid email format"))
}
