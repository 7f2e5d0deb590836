package taskflow_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/app"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/mail"
	httpapi "github.com/aussiebroadwan/taskflow/internal/taskflow/http"
	"github.com/aussiebroadwan/taskflow/pkg/httpx"
	"github.com/aussiebroadwan/taskflow/pkg/slogx"
	"github.com/aussiebroadwan/taskflow/pkg/taskflowsdk"
)

/*
 * Helpers for the TaskFlow end-to-end tests. Each instance is a fully wired
 * Application served over httptest; the cluster tests start MongoDB and
 * Redis containers and point two instances at them.
 */

const (
	jwtSecret      = "e2e-secret-0123456789abcdef012345"
	bootstrapToken = "test-bootstrap-token-12345"
	adminEmail     = "admin@taskflow.test"
	adminPassword  = "Admin123!"
)

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

type instance struct {
	srv    *httptest.Server
	client *taskflowsdk.SDKClient
	outbox *outbox
	stop   func()
}

// baseConfig is a sqlite configuration rooted in a fresh temp dir.
func baseConfig(t *testing.T) app.Config {
	t.Helper()
	dir := t.TempDir()
	return app.Config{
		JWTSecret:            jwtSecret,
		JWTExpiration:        time.Hour,
		JWTIssuer:            "taskflow",
		StoreDriver:          "sqlite",
		DatabaseFile:         filepath.Join(dir, "taskflow.db"),
		PepperFile:           filepath.Join(dir, "pepper"),
		BootstrapToken:       bootstrapToken,
		FrontendURL:          "http://localhost:3000",
		AllowedOrigins:       []string{"http://localhost:3000"},
		RedisChannel:         "taskflow:events",
		Env:                  "test",
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,
	}
}

// start wires an Application for cfg and serves it. stop is safe to call
// more than once and also runs at cleanup.
func start(t *testing.T, cfg app.Config) *instance {
	t.Helper()

	relaxed := httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
	box := &outbox{}
	a, err := app.New(cfg,
		app.WithLogger(slogx.Discard()),
		app.WithMailer(box),
		app.WithLimits(httpapi.Limits{Strict: relaxed, Moderate: relaxed, Lenient: relaxed, Public: relaxed}),
	)
	require.NoError(t, err)
	srv := httptest.NewServer(a.Handler())

	var once sync.Once
	stop := func() {
		once.Do(func() {
			srv.Close()
			_ = a.Close()
		})
	}
	t.Cleanup(stop)

	return &instance{srv: srv, client: taskflowsdk.NewSDKClient(srv.URL), outbox: box, stop: stop}
}

func bootstrap(t *testing.T, client *taskflowsdk.SDKClient) *taskflowsdk.Session {
	t.Helper()
	s, err := client.Bootstrap(t.Context(), taskflowsdk.BootstrapRequest{
		Token:    bootstrapToken,
		Name:     "Administrator",
		Email:    adminEmail,
		Password: adminPassword,
	})
	require.NoError(t, err)
	return s
}

func register(t *testing.T, client *taskflowsdk.SDKClient, name, email string) *taskflowsdk.Session {
	t.Helper()
	s, err := client.Register(t.Context(), taskflowsdk.RegisterRequest{Name: name, Email: email, Password: "secret1"})
	require.NoError(t, err)
	return s
}

// dialEvents opens the websocket for session s and waits for the greeting.
func dialEvents(t *testing.T, in *instance, s *taskflowsdk.Session) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(in.srv.URL, "http") + "/api/ws?token=" + s.Token()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Equal(t, "connected", next(t, conn)["type"])
	return conn
}

func next(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// waitFor reads until a message of type typ arrives.
func waitFor(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	for {
		msg := next(t, conn)
		if msg["type"] == typ {
			return msg
		}
	}
}

func join(t *testing.T, conn *websocket.Conn, taskID string) map[string]any {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]string{"action": "join", "taskId": taskID}))
	return next(t, conn)
}

func startContainer(t *testing.T, image, port string) (testcontainers.Container, context.Context) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{port},
			WaitingFor:   wait.ForListeningPort(nat.Port(port)).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})
	return container, ctx
}

// startMongo returns a connection URI for a throwaway mongod.
func startMongo(t *testing.T) string {
	t.Helper()
	c, ctx := startContainer(t, "mongo:7", "27017/tcp")
	uri, err := c.PortEndpoint(ctx, "27017/tcp", "mongodb")
	require.NoError(t, err)
	return uri
}

// startRedis returns host:port for a throwaway redis.
func startRedis(t *testing.T) string {
	t.Helper()
	c, ctx := startContainer(t, "redis:7-alpine", "6379/tcp")
	addr, err := c.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)
	return addr
}
