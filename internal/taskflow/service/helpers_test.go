package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/mail"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store/drivers/sqlite"
	"github.com/aussiebroadwan/taskflow/pkg/cryptox"
	"github.com/aussiebroadwan/taskflow/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
}

func (n *recordingNotifier) Publish(_ context.Context, e domain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) Events() []domain.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Event(nil), n.events...)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type env struct {
	store    store.Store
	hasher   *cryptox.Hasher
	verifier *jwtx.HS256Verifier
	notifier *recordingNotifier
	mailer   *recordingMailer

	accounts  *AccountService
	admin     *AdminService
	resets    *ResetService
	bootstrap *BootstrapService
	tasks     *TaskService
	comments  *CommentService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	keys, err := jwtx.NewKeySet([]byte(testSecret))
	require.NoError(t, err)
	issuer := jwtx.NewIssuer(jwtx.NewSignerHS256(keys), "taskflow", 0)

	// Cheap parameters keep the suite fast.
	hasher := &cryptox.Hasher{Pepper: "pepper", Params: cryptox.Params{Memory: 64, Iterations: 1, Parallelism: 1, KeyLength: 16, SaltLength: 8}}

	e := &env{
		store:    st,
		hasher:   hasher,
		verifier: jwtx.NewVerifierHS256(keys, "taskflow"),
		notifier: &recordingNotifier{},
		mailer:   &recordingMailer{},
	}
	e.accounts = &AccountService{Store: st, Hasher: hasher, Tokens: issuer}
	e.resets = &ResetService{
		Store:    st,
		Hasher:   hasher,
		Notifier: e.notifier,
		Mailer:   e.mailer,
		Config:   ResetConfig{FrontendURL: "http://localhost:3000/", ExposeToken: true},
	}
	e.admin = &AdminService{Store: st, Hasher: hasher, Resets: e.resets}
	e.bootstrap = &BootstrapService{Store: st, Hasher: hasher, Tokens: issuer, Token: "boot"}
	e.tasks = &TaskService{Store: st, Notifier: e.notifier}
	e.comments = &CommentService{Store: st, Notifier: e.notifier}
	return e
}

func (e *env) register(t *testing.T, name, email string) domain.PublicUser {
	t.Helper()
	res, err := e.accounts.Register(context.Background(), RegisterInput{Name: name, Email: email, Password: "secret1"})
	require.NoError(t, err)
	return res.User
}

func (e *env) promote(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, e.store.Users().UpdateRole(context.Background(), id, domain.RoleAdmin))
}

func (e *env) task(t *testing.T, ownerID string, in CreateTaskInput) domain.TaskView {
	t.Helper()
	if in.Title == "" {
		in.Title = "Write report"
	}
	if in.Description == "" {
		in.Description = "Quarterly numbers"
	}
	v, err := e.tasks.CreateTask(context.Background(), ownerID, in)
	require.NoError(t, err)
	return v
}

func requireFields(t *testing.T, err error, fields ...string) {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	got := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		got = append(got, f.Field)
	}
	require.ElementsMatch(t, fields, got)
}
