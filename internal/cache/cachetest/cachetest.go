// Package cachetest starts a throwaway Redis container for tests.
package cachetest

import (
	"context"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	once      sync.Once
	container testcontainers.Container
	client    *redis.Client
	startErr  error
)

func start() {
	ctx := context.Background()

	container, startErr = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if startErr != nil {
		return
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		startErr = err
		return
	}

	client = redis.NewClient(&redis.Options{Addr: endpoint})
	startErr = client.Ping(ctx).Err()
}

// New returns a client to an empty Redis. The test is skipped when running
// with -short or when Docker is unavailable.
func New(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	once.Do(start)
	if startErr != nil {
		t.Fatalf("could not start redis container: %v", startErr)
	}

	if err := client.FlushAll(context.Background()).Err(); err != nil {
		t.Fatalf("could not flush redis: %v", err)
	}
	return client
}

// Shutdown terminates the container if one was started.
func Shutdown() {
	if client != nil {
		_ = client.Close()
	}
	if container != nil {
		_ = container.Terminate(context.Background())
	}
}
