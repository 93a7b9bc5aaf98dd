package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aussiebroadwan/taskd/internal/taskd/cache"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestRedisIntegration runs the Lua and WATCH paths against a real Redis,
// since miniredis only emulates them.
func TestRedisIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	c, err := cache.Dial(ctx, cache.Options{
		URL:    fmt.Sprintf("redis://%s:%s/0", host, port.Port()),
		Prefix: "it",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	revs := cache.NewRevocations(c)
	require.NoError(t, revs.Revoke(ctx, "tok", time.Minute))
	require.NoError(t, revs.Revoke(ctx, "tok", time.Second))
	time.Sleep(1500 * time.Millisecond)
	revoked, err := revs.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	require.True(t, revoked)

	qc := cache.NewQueryCache(c, time.Minute)
	key := qc.Key(cache.ListQuery{Subject: 1})
	gen, err := qc.Generation(ctx, 1)
	require.NoError(t, err)

	stored, err := qc.Set(ctx, 1, key, gen, page{Items: []string{"a"}})
	require.NoError(t, err)
	require.True(t, stored)

	require.NoError(t, qc.Invalidate(ctx, 1))
	stored, err = qc.Set(ctx, 1, key, gen, page{Items: []string{"stale"}})
	require.NoError(t, err)
	require.False(t, stored)

	var got page
	hit, err := qc.Get(ctx, key, &got)
	require.NoError(t, err)
	require.False(t, hit)
}
