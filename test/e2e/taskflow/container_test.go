package taskflow_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/taskflow/pkg/taskflowsdk"
)

// TestContainerImage builds cmd/taskflow/Dockerfile and drives the image
// over the network with the SDK.
func TestContainerImage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping image build in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			FromDockerfile: testcontainers.FromDockerfile{
				Context:    "../../..",
				Dockerfile: "cmd/taskflow/Dockerfile",
			},
			ExposedPorts: []string{"5000/tcp"},
			Env: map[string]string{
				"JWT_SECRET":      jwtSecret,
				"BOOTSTRAP_TOKEN": bootstrapToken,
				"ENV":             "test",
				"LOG_FORMAT":      "json",
				// E2E flows fire many requests from one address.
				"RATELIMIT_STRICT_REQUESTS":   "1000",
				"RATELIMIT_STRICT_BURST":      "1000",
				"RATELIMIT_MODERATE_REQUESTS": "1000",
				"RATELIMIT_MODERATE_BURST":    "1000",
			},
			WaitingFor: wait.ForHTTP("/livez").
				WithPort("5000/tcp").
				WithStartupTimeout(120 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5000")
	require.NoError(t, err)
	client := taskflowsdk.NewSDKClient(fmt.Sprintf("http://%s:%s", host, port.Port()))

	ready, err := client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)

	admin := bootstrap(t, client)
	require.Equal(t, "admin", admin.User().Role)

	ann := register(t, client, "Ann Lee", "ann@x.com")
	task, err := ann.CreateTask(ctx, taskflowsdk.TaskRequest{
		Title:       taskflowsdk.String("Smoke test"),
		Description: taskflowsdk.String("Runs inside the image"),
	})
	require.NoError(t, err)
	require.Equal(t, "pending", task.Status)
}
