package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/mail"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
	"github.com/aussiebroadwan/taskflow/pkg/cryptox"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
)

// DefaultResetTokenTTL is how long a reset link stays usable.
const DefaultResetTokenTTL = time.Hour

const forgotPasswordMessage = "if an account exists for that email, a reset link has been sent"

type ResetConfig struct {
	// FrontendURL prefixes reset links: <FrontendURL>/reset-password/<token>.
	FrontendURL string
	TokenTTL    time.Duration

	// ExposeToken echoes raw tokens and links in responses. Never set in
	// production.
	ExposeToken bool
}

// ResetLink is the outcome of an administrator issuing a reset link.
type ResetLink struct {
	Message   string `json:"message"`
	EmailSent bool   `json:"emailSent"`
	Token     string `json:"token,omitempty"`
	ResetURL  string `json:"resetUrl,omitempty"`
}

// ForgotResult is identical whether or not the email is registered.
type ForgotResult struct {
	Message  string `json:"message"`
	Token    string `json:"token,omitempty"`
	ResetURL string `json:"resetUrl,omitempty"`
}

// ResetService owns reset tokens: issuing, verifying and redeeming them.
type ResetService struct {
	Store    store.Store
	Hasher   PasswordHasher
	Notifier Notifier
	Mailer   mail.Mailer
	Config   ResetConfig

	now     func() time.Time
	mailing sync.WaitGroup
}

func (s *ResetService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

func (s *ResetService) ttl() time.Duration {
	if s.Config.TokenTTL > 0 {
		return s.Config.TokenTTL
	}
	return DefaultResetTokenTTL
}

func (s *ResetService) link(token string) string {
	return strings.TrimRight(s.Config.FrontendURL, "/") + "/reset-password/" + token
}

// issue stores a fresh token for user and tells the admin room. It returns
// the raw token.
func (s *ResetService) issue(ctx context.Context, user domain.User, requestedBy string) (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}
	now := s.clock()
	expires := now.Add(s.ttl())

	err = s.Store.Users().SetResetToken(ctx, user.ID, cryptox.FingerprintToken(token), expires)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}

	slogx.FromContext(ctx).Info("password reset token issued", "user_id", user.ID, "requested_by", requestedBy)

	if s.Notifier != nil {
		s.Notifier.Publish(ctx, domain.Event{
			Type:  domain.EventPasswordResetRequested,
			Topic: domain.TopicAdmins,
			Data: map[string]any{
				"userId":      user.ID,
				"name":        user.Name,
				"email":       user.Email,
				"requestedBy": requestedBy,
				"expiresAt":   expires,
			},
			At: now,
		})
	}
	return token, nil
}

// mailLink sends the reset link to user and reports whether it went out.
// Failures are logged, never returned.
func (s *ResetService) mailLink(ctx context.Context, user domain.User, url string) bool {
	if s.Mailer == nil {
		return false
	}
	err := s.Mailer.Send(ctx, mail.Message{
		To:      user.Email,
		Subject: "Reset your TaskFlow password",
		Body: fmt.Sprintf("Hi %s,\n\nA password reset was requested for your TaskFlow account.\n"+
			"Open this link within %s to choose a new password:\n\n%s\n\n"+
			"If you did not ask for this, you can ignore this email.\n",
			user.Name, s.ttl(), url),
	})
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to send password reset email", "user_id", user.ID, "error", err)
		return false
	}
	return true
}

// issueLink issues a token and mails it before returning, so the caller
// learns whether the email went out. Only the store write can fail the call.
func (s *ResetService) issueLink(ctx context.Context, user domain.User, requestedBy string) (ResetLink, error) {
	token, err := s.issue(ctx, user, requestedBy)
	if err != nil {
		return ResetLink{}, err
	}

	url := s.link(token)
	res := ResetLink{
		Message:   "reset link sent to " + user.Email,
		EmailSent: s.mailLink(ctx, user, url),
	}
	if s.Config.ExposeToken {
		res.Token = token
		res.ResetURL = url
	}
	return res, nil
}

// ForgotPassword issues a reset link when email belongs to a user. The result
// never reveals whether it does, and the email is sent in the background so
// response time does not either.
func (s *ResetService) ForgotPassword(ctx context.Context, email string) (ForgotResult, error) {
	var v ValidationError
	checkEmail(&v, email)
	if err := v.err(); err != nil {
		return ForgotResult{}, err
	}

	res := ForgotResult{Message: forgotPasswordMessage}

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		slogx.FromContext(ctx).Info("password reset requested for unknown email")
		return res, nil
	}
	if err != nil {
		return ForgotResult{}, fmt.Errorf("lookup email: %w", err)
	}

	token, err := s.issue(ctx, user, "self")
	if err != nil {
		return ForgotResult{}, err
	}

	url := s.link(token)
	mailCtx := context.WithoutCancel(ctx)
	s.mailing.Add(1)
	go func() {
		defer s.mailing.Done()
		s.mailLink(mailCtx, user, url)
	}()

	if s.Config.ExposeToken {
		res.Token = token
		res.ResetURL = url
	}
	return res, nil
}

// Wait blocks until every background reset email has been handed to the
// mailer.
func (s *ResetService) Wait() {
	s.mailing.Wait()
}

func (s *ResetService) lookup(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, ErrInvalidResetToken
	}
	user, err := s.Store.Users().GetUserByResetToken(ctx, cryptox.FingerprintToken(token))
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrInvalidResetToken
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("lookup reset token: %w", err)
	}
	if !user.HasValidResetToken(s.clock()) {
		return domain.User{}, ErrInvalidResetToken
	}
	return user, nil
}

func (s *ResetService) VerifyResetToken(ctx context.Context, token string) error {
	_, err := s.lookup(ctx, token)
	return err
}

// CompleteReset redeems token. Tokens are single use: the password write is
// conditioned on the token still being stored and clears it, so of two
// concurrent redemptions only one succeeds.
func (s *ResetService) CompleteReset(ctx context.Context, token, newPassword string) error {
	var v ValidationError
	checkNewPassword(&v, "password", newPassword)
	if err := v.err(); err != nil {
		return err
	}

	user, err := s.lookup(ctx, token)
	if err != nil {
		return err
	}

	hash, err := s.Hasher.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = s.Store.Users().UpdatePassword(ctx, user.ID, store.PasswordUpdate{
		Hash:           hash,
		ClearReset:     true,
		ResetTokenHash: cryptox.FingerprintToken(token),
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	slogx.FromContext(ctx).Info("password reset completed", "user_id", user.ID)
	return nil
}
