//go:build integration

package cache

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestIntegration_SetGetDelete(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	m := NewManager(redisClient)
	ctx := context.Background()
	key := Key{
		Endpoint: "schedule",
		Params:   url.Values{"season": {"2023"}, "gameType": {"R"}},
	}

	if _, err := m.Get(ctx, key); err != ErrCacheMiss {
		t.Fatalf("Expected cache miss, got %v", err)
	}

	if err := m.Set(ctx, key, NewEntry([]byte(`{"dates":[]}`), time.Minute)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	entry, err := m.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(entry.Data) != `{"dates":[]}` {
		t.Errorf("Data = %q", entry.Data)
	}

	if err := m.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := m.Get(ctx, key); err != ErrCacheMiss {
		t.Errorf("Expected miss after delete, got %v", err)
	}
}

func TestIntegration_ExpiredEntryEvicted(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	m := NewManager(redisClient)
	ctx := context.Background()
	key := Key{Endpoint: "counts"}

	// Entry with a sub-second TTL round-trips through Redis but reads
	// as a miss once stale.
	if err := m.Set(ctx, key, NewEntry([]byte("x"), 50*time.Millisecond)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(150 * time.Millisecond)

	if _, err := m.Get(ctx, key); err != ErrCacheMiss {
		t.Errorf("Expected miss for expired entry, got %v", err)
	}
}
