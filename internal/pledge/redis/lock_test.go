package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MockRedisClient backs the lock commands with a plain map.
type MockRedisClient struct {
	lockMap map[string]string
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{lockMap: make(map[string]string)}
}

func (m *MockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	cmd := new(redis.BoolCmd)
	if _, exists := m.lockMap[key]; !exists {
		m.lockMap[key] = value.(string)
		cmd.SetVal(true)
	} else {
		cmd.SetVal(false)
	}
	return cmd
}

func (m *MockRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := new(redis.StringCmd)
	if val, exists := m.lockMap[key]; exists {
		cmd.SetVal(val)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := new(redis.IntCmd)
	count := int64(0)
	for _, key := range keys {
		if _, exists := m.lockMap[key]; exists {
			delete(m.lockMap, key)
			count++
		}
	}
	cmd.SetVal(count)
	return cmd
}

func TestLockReference_SecondAttemptFails(t *testing.T) {
	r := NewRedis(NewMockRedisClient())

	locked, err := r.LockReference("REF-100", "ord_1")
	require.NoError(t, err)
	assert.True(t, locked)

	locked, err = r.LockReference("REF-100", "ord_2")
	require.NoError(t, err)
	assert.False(t, locked, "second workflow must not acquire the same reference")
}

func TestUnlockReference_OnlyOwnerReleases(t *testing.T) {
	client := NewMockRedisClient()
	r := NewRedis(client)

	locked, err := r.LockReference("REF-200", "ord_owner")
	require.NoError(t, err)
	require.True(t, locked)

	// A different order must not release the lock.
	require.NoError(t, r.UnlockReference("REF-200", "ord_other"))
	assert.Equal(t, "ord_owner", client.lockMap["pledge_ref_lock:REF-200"])

	require.NoError(t, r.UnlockReference("REF-200", "ord_owner"))
	_, held := client.lockMap["pledge_ref_lock:REF-200"]
	assert.False(t, held)

	locked, err = r.LockReference("REF-200", "ord_next")
	require.NoError(t, err)
	assert.True(t, locked, "reference should be lockable again after release")
}

func TestUnlockReference_MissingKeyIsNoError(t *testing.T) {
	r := NewRedis(NewMockRedisClient())

	assert.NoError(t, r.UnlockReference("REF-300", "ord_1"), "expired lock should unlock cleanly")
}

// TestRedisIntegration exercises the lock against a real Redis container.
func TestRedisIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:latest",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	defer client.Close()

	r := NewRedis(client)

	locked, err := r.LockReference("REF-IT-1", "ord_a")
	require.NoError(t, err)
	assert.True(t, locked)

	locked, err = r.LockReference("REF-IT-1", "ord_b")
	require.NoError(t, err)
	assert.False(t, locked)

	require.NoError(t, r.UnlockReference("REF-IT-1", "ord_a"))

	locked, err = r.LockReference("REF-IT-1", "ord_b")
	require.NoError(t, err)
	assert.True(t, locked)
}
