package housekeeper

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const leaseTestRedisAddr = "localhost:6379"

// newTestLeaseRedis skips the test unless INTEGRATION is set, mirroring
// tests/integration's gate: lease acquire/release needs a real SET NX EX
// and a real Lua GET-then-DEL, not a mock.
func newTestLeaseRedis(t *testing.T) (*redis.Client, string) {
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("Skipping integration test: set INTEGRATION env var to run")
	}

	rdb := redis.NewClient(&redis.Options{Addr: leaseTestRedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, rdb.Ping(ctx).Err(), "failed to connect to Redis")

	key := fmt.Sprintf("bouncer_test_lease_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cleanupCancel()
		rdb.Del(cleanupCtx, key)
		rdb.Close()
	})
	return rdb, key
}

func TestLease_AcquireExcludesOtherHolders(t *testing.T) {
	rdb, key := newTestLeaseRedis(t)
	ctx := context.Background()

	l := newLease(rdb, key, "holder-a", time.Minute)
	acquired, err := l.acquire(ctx)
	require.NoError(t, err)
	assert.True(t, acquired)

	other := newLease(rdb, key, "holder-b", time.Minute)
	acquired, err = other.acquire(ctx)
	require.NoError(t, err)
	assert.False(t, acquired, "a lease already held by another holder must not be re-acquirable")
}

func TestLease_ReleaseFreesForNextHolder(t *testing.T) {
	rdb, key := newTestLeaseRedis(t)
	ctx := context.Background()

	l := newLease(rdb, key, "holder-a", time.Minute)
	acquired, err := l.acquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, l.release(ctx))

	other := newLease(rdb, key, "holder-b", time.Minute)
	acquired, err = other.acquire(ctx)
	require.NoError(t, err)
	assert.True(t, acquired, "the lease must be free once its holder releases it")
}

func TestLease_ReleaseByWrongHolderIsNoop(t *testing.T) {
	rdb, key := newTestLeaseRedis(t)
	ctx := context.Background()

	l := newLease(rdb, key, "holder-a", time.Minute)
	acquired, err := l.acquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	impostor := newLease(rdb, key, "holder-b", time.Minute)
	require.NoError(t, impostor.release(ctx))

	val, err := rdb.Get(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, "holder-a", val, "release by a non-owning holder must not clear the lease")
}

func TestLease_ExpiresAfterTTL(t *testing.T) {
	rdb, key := newTestLeaseRedis(t)
	ctx := context.Background()

	l := newLease(rdb, key, "holder-a", 50*time.Millisecond)
	acquired, err := l.acquire(ctx)
	require.NoError(t, err)
	require.True(t, acquired)

	time.Sleep(150 * time.Millisecond)

	other := newLease(rdb, key, "holder-b", time.Minute)
	acquired, err = other.acquire(ctx)
	require.NoError(t, err)
	assert.True(t, acquired, "an expired lease must be re-acquirable by a new holder")
}
