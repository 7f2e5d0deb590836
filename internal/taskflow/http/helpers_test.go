package http_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	httpapi "github.com/aussiebroadwan/taskflow/internal/taskflow/http"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/mail"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/notify"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/service"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store/drivers/sqlite"
	"github.com/aussiebroadwan/taskflow/pkg/cryptox"
	"github.com/aussiebroadwan/taskflow/pkg/httpx"
	"github.com/aussiebroadwan/taskflow/pkg/jwtx"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
	"github.com/aussiebroadwan/taskflow/pkg/taskflowsdk"
)

const (
	testSecret     = "0123456789abcdef0123456789abcdef"
	bootstrapToken = "test-bootstrap-token"
	adminEmail     = "admin@taskflow.test"
	adminPassword  = "Admin123!"
)

var relaxed = httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}

type outbox struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) Sent() []mail.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]mail.Message(nil), o.sent...)
}

type testAPI struct {
	srv    *httptest.Server
	client *taskflowsdk.SDKClient
	store  store.Store
	outbox *outbox
}

type apiOptions struct {
	limits     *httpapi.Limits
	strict     bool
	production bool
}

func newTestAPI(t *testing.T, opts ...func(*apiOptions)) *testAPI {
	t.Helper()
	var o apiOptions
	for _, opt := range opts {
		opt(&o)
	}

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	keys, err := jwtx.NewKeySet([]byte(testSecret))
	require.NoError(t, err)
	issuer := jwtx.NewIssuer(jwtx.NewSignerHS256(keys), "taskflow", time.Hour)
	verifier := jwtx.NewVerifierHS256(keys, "taskflow")

	hasher := &cryptox.Hasher{Pepper: "pepper", Params: cryptox.Params{Memory: 64, Iterations: 1, Parallelism: 1, KeyLength: 16, SaltLength: 8}}
	hub := notify.NewHub(notify.HubOptions{Logger: slogx.Discard()})
	t.Cleanup(hub.Close)
	box := &outbox{}

	r := httpapi.NewRouter(keys, verifier, "test", st, slogx.Discard())
	r.AccountService = &service.AccountService{Store: st, Hasher: hasher, Tokens: issuer}
	r.ResetService = &service.ResetService{
		Store:    st,
		Hasher:   hasher,
		Notifier: hub,
		Mailer:   box,
		Config:   service.ResetConfig{FrontendURL: "http://localhost:3000", ExposeToken: !o.production},
	}
	r.AdminService = &service.AdminService{Store: st, Hasher: hasher, Resets: r.ResetService}
	r.BootstrapService = &service.BootstrapService{Store: st, Hasher: hasher, Tokens: issuer, Token: bootstrapToken}
	r.TaskService = &service.TaskService{Store: st, Notifier: hub}
	r.CommentService = &service.CommentService{Store: st, Notifier: hub}
	r.Hub = hub
	r.AdminOptions = httpx.AdminOptions{Strict: o.strict}
	r.Limits = httpapi.Limits{Strict: relaxed, Moderate: relaxed, Lenient: relaxed, Public: relaxed}
	if o.limits != nil {
		r.Limits = *o.limits
	}
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testAPI{srv: srv, client: taskflowsdk.NewSDKClient(srv.URL), store: st, outbox: box}
}

func (a *testAPI) bootstrap(t *testing.T) *taskflowsdk.Session {
	t.Helper()
	s, err := a.client.Bootstrap(t.Context(), taskflowsdk.BootstrapRequest{
		Token:    bootstrapToken,
		Name:     "Administrator",
		Email:    adminEmail,
		Password: adminPassword,
	})
	require.NoError(t, err)
	return s
}

func (a *testAPI) register(t *testing.T, name, email string) *taskflowsdk.Session {
	t.Helper()
	s, err := a.client.Register(t.Context(), taskflowsdk.RegisterRequest{Name: name, Email: email, Password: "secret1"})
	require.NoError(t, err)
	return s
}

// requireStatus asserts err is an API error with the given status and
// returns it for further checks.
func requireStatus(t *testing.T, err error, status int) *taskflowsdk.APIError {
	t.Helper()
	var apiErr *taskflowsdk.APIError
	require.True(t, errors.As(err, &apiErr), "expected *APIError, got %v", err)
	require.Equal(t, status, apiErr.StatusCode, apiErr.Error())
	return apiErr
}
