//go:build integration

package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	addr, err := c.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisCacheRoundTrip(t *testing.T) {
	client := startRedis(t)
	cache := NewRedisCache(client)
	ctx := context.Background()

	_, err := cache.Get(ctx, keyPrefix+"absent")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, cache.Set(ctx, keyPrefix+"k", []byte(`{"total":1}`), jitteredTTL()))
	got, err := cache.Get(ctx, keyPrefix+"k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"total":1}`), got)

	ttl, err := client.TTL(ctx, keyPrefix+"k").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 299*time.Second)
	assert.LessOrEqual(t, ttl, 600*time.Second)
}

func TestServiceSharesRemoteTierAcrossInstances(t *testing.T) {
	remote := NewRedisCache(startRedis(t))
	store := &countingLister{records: sampleAssets()}
	ctx := context.Background()

	a, err := newTestService(store, remote).ListPageCached(ctx, Filter{}, viewer)
	require.NoError(t, err)
	b, err := newTestService(store, remote).ListPageCached(ctx, Filter{}, viewer)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.EqualValues(t, 1, store.calls.Load())
}
