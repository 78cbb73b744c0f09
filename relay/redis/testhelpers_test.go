//go:build integration

package redis_test

import (
	"context"
	"strings"
	"testing"
	"time"

	relayredis "github.com/marcelsud/webhook-relay/relay/redis"
	"github.com/stretchr/testify/require"
	testcontainersredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisContainer holds the Redis testcontainer and connection details
type RedisContainer struct {
	Container *testcontainersredis.RedisContainer
	Addr      string
}

// SetupRedisContainer creates and starts a Redis testcontainer
func SetupRedisContainer(t *testing.T, ctx context.Context) (*RedisContainer, func()) {
	t.Helper()

	redisContainer, err := testcontainersredis.Run(ctx,
		"redis:7-alpine",
		testcontainersredis.WithLogLevel(testcontainersredis.LogLevelVerbose),
	)
	require.NoError(t, err, "failed to start Redis container")

	addr, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err, "failed to get Redis connection string")
	addr = strings.TrimPrefix(addr, "redis://")

	rc := &RedisContainer{
		Container: redisContainer,
		Addr:      addr,
	}

	cleanup := func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	}

	return rc, cleanup
}

// CreateTestBackend creates a relay backend connected to the test container
func CreateTestBackend(t *testing.T, addr string, opts relayredis.Options) *relayredis.Backend {
	t.Helper()

	client, err := relayredis.NewClient(addr, "", 0)
	require.NoError(t, err, "failed to connect to Redis")

	if opts.ClientTimeout == 0 {
		opts.ClientTimeout = 30 * time.Second
	}
	return relayredis.NewBackend(client, opts)
}
