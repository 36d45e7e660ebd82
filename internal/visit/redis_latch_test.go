package visit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLatch(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisLatch) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	latch := NewRedisLatch(client, ttl)
	latch.pollInterval = 5 * time.Millisecond
	latch.waitTimeout = 200 * time.Millisecond
	return mr, latch
}

func TestRedisLatch_RunsOncePerKey(t *testing.T) {
	mr, latch := newTestLatch(t, 5*time.Minute)
	runs := 0
	fn := func(context.Context) ([]byte, error) {
		runs++
		return []byte("checked-in #1"), nil
	}

	for i := 0; i < 3; i++ {
		out, err := latch.Do(context.Background(), "visit-1", fn)
		require.NoError(t, err)
		assert.Equal(t, "checked-in #1", string(out))
	}
	assert.Equal(t, 1, runs)

	stored, err := mr.Get(resultKey("visit-1"))
	require.NoError(t, err)
	assert.Equal(t, "checked-in #1", stored)
	assert.Equal(t, 5*time.Minute, mr.TTL(resultKey("visit-1")))
}

func TestRedisLatch_LockExpiresBeforeOutcome(t *testing.T) {
	mr, latch := newTestLatch(t, 5*time.Minute)
	var lockTTL time.Duration

	_, err := latch.Do(context.Background(), "visit-1", func(context.Context) ([]byte, error) {
		lockTTL = mr.TTL(lockKey("visit-1"))
		return []byte("ok"), nil
	})
	require.NoError(t, err)

	assert.Equal(t, defaultLockTTL, lockTTL)
	assert.Less(t, lockTTL, mr.TTL(resultKey("visit-1")))
}

func TestRedisLatch_LockNeverOutlivesOutcome(t *testing.T) {
	_, latch := newTestLatch(t, 2*time.Second)
	assert.Equal(t, 2*time.Second, latch.lockTTL)
}

func TestRedisLatch_AbandonedLockExpires(t *testing.T) {
	mr, latch := newTestLatch(t, 5*time.Minute)
	require.NoError(t, mr.Set(lockKey("visit-1"), "1"))
	mr.SetTTL(lockKey("visit-1"), latch.lockTTL)

	mr.FastForward(latch.lockTTL + time.Second)

	out, err := latch.Do(context.Background(), "visit-1", func(context.Context) ([]byte, error) {
		return []byte("recovered"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(out))
}

func TestRedisLatch_FailureReleasesKey(t *testing.T) {
	mr, latch := newTestLatch(t, time.Minute)
	boom := errors.New("boom")

	_, err := latch.Do(context.Background(), "visit-1", func(context.Context) ([]byte, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(lockKey("visit-1")))
	assert.False(t, mr.Exists(resultKey("visit-1")))

	out, err := latch.Do(context.Background(), "visit-1", func(context.Context) ([]byte, error) {
		return []byte("second try"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "second try", string(out))
}

func TestRedisLatch_WaiterReceivesHolderOutcome(t *testing.T) {
	mr, latch := newTestLatch(t, time.Minute)
	require.NoError(t, mr.Set(lockKey("visit-1"), "1"))

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = mr.Set(resultKey("visit-1"), "from holder")
	}()

	out, err := latch.Do(context.Background(), "visit-1", func(context.Context) ([]byte, error) {
		t.Error("waiter must not run the check-in")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "from holder", string(out))
}

func TestRedisLatch_InProgressWhenHolderNeverFinishes(t *testing.T) {
	mr, latch := newTestLatch(t, time.Minute)
	require.NoError(t, mr.Set(lockKey("visit-1"), "1"))
	latch.waitTimeout = 20 * time.Millisecond

	_, err := latch.Do(context.Background(), "visit-1", func(context.Context) ([]byte, error) {
		return []byte("unexpected"), nil
	})
	assert.ErrorIs(t, err, ErrInProgress)
}

func TestRedisLatch_WaiterHonoursContext(t *testing.T) {
	mr, latch := newTestLatch(t, time.Minute)
	require.NoError(t, mr.Set(lockKey("visit-1"), "1"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := latch.Do(ctx, "visit-1", func(context.Context) ([]byte, error) { return nil, nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
