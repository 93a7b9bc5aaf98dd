package taskd_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/aussiebroadwan/taskd/pkg/taskdsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * End-to-end tests run the built image against a real Redis on a private
 * Docker network and talk to it only through taskdsdk.
 */

const (
	testImageName = "taskd-test:latest"
	redisAlias    = "redis"
	testPassword  = "correct horse battery"
)

func TestMain(m *testing.M) {
	if os.Getenv("TASKD_E2E") == "" {
		fmt.Fprintln(os.Stdout, "skipping e2e tests; set TASKD_E2E=1 to run")
		os.Exit(0)
	}

	fmt.Fprintf(os.Stdout, "Building taskd Docker image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up taskd Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/taskd/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	_ = exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName).Run()
}

type stack struct {
	baseURL string
	redis   testcontainers.Container
}

// setupStack starts Redis and taskd on a shared network and returns the
// taskd base URL. Containers are removed when the test ends.
func setupStack(t *testing.T, env map[string]string) *stack {
	t.Helper()
	ctx := context.Background()

	nw, err := network.New(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = nw.Remove(context.Background()) })

	redis, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:          "redis:7-alpine",
			Networks:       []string{nw.Name},
			NetworkAliases: map[string][]string{nw.Name: {redisAlias}},
			WaitingFor:     wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = redis.Terminate(context.Background()) })

	containerEnv := map[string]string{
		"JWT_ACCESS_SECRET":  "e2e-access-secret-e2e-access-secret",
		"JWT_REFRESH_SECRET": "e2e-refresh-secret-e2e-refresh-secret",
		"JWT_ISSUER":         "taskd-e2e",
		"DATABASE_DRIVER":    "sqlite",
		"DATABASE_URL":       "/data/taskd.db",
		"REDIS_URL":          fmt.Sprintf("redis://%s:6379/0", redisAlias),
		"PASSWORD_PEPPER":    "e2e-pepper",
		"COOKIE_SECURE":      "false",
		"ENV":                "test",
		"LOG_LEVEL":          "info",
		"LOG_FORMAT":         "json",
		// Tests make many rapid calls from one IP.
		"RATELIMIT_AUTH_REQUESTS": "1000",
		"RATELIMIT_AUTH_BURST":    "1000",
	}
	for k, v := range env {
		containerEnv[k] = v
	}

	app, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        testImageName,
			ExposedPorts: []string{"8080/tcp"},
			Networks:     []string{nw.Name},
			Env:          containerEnv,
			WaitingFor: wait.ForHTTP("/readyz").
				WithPort("8080/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := app.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := app.Host(ctx)
	require.NoError(t, err)
	port, err := app.MappedPort(ctx, "8080")
	require.NoError(t, err)

	return &stack{baseURL: fmt.Sprintf("http://%s:%s", host, port.Port()), redis: redis}
}

func signUp(t *testing.T, baseURL, email string) (*taskdsdk.Client, *taskdsdk.Session) {
	t.Helper()
	c := taskdsdk.NewClient(baseURL)
	s, err := c.SignUp(t.Context(), taskdsdk.SignUpRequest{
		Username: "e2e-user",
		Email:    email,
		Password: testPassword,
	})
	require.NoError(t, err)
	return c, s
}
