package visit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLatch_RunsOncePerKey(t *testing.T) {
	latch := NewMemoryLatch(time.Minute)
	var runs int32

	fn := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&runs, 1)
		return []byte("checked-in #1"), nil
	}

	for i := 0; i < 3; i++ {
		out, err := latch.Do(context.Background(), "donor|camp|visit-1", fn)
		require.NoError(t, err)
		assert.Equal(t, "checked-in #1", string(out))
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&runs))
}

func TestMemoryLatch_ConcurrentCallersShareOutcome(t *testing.T) {
	latch := NewMemoryLatch(time.Minute)
	release := make(chan struct{})
	var runs int32

	fn := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&runs, 1)
		<-release
		return []byte("ok"), nil
	}

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := latch.Do(context.Background(), "visit", fn)
			assert.NoError(t, err)
			results[i] = string(out)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&runs))
	for _, r := range results {
		assert.Equal(t, "ok", r)
	}
}

func TestMemoryLatch_DistinctKeysRunSeparately(t *testing.T) {
	latch := NewMemoryLatch(time.Minute)
	var runs int32
	fn := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&runs, 1)
		return nil, nil
	}

	_, _ = latch.Do(context.Background(), "visit-1", fn)
	_, _ = latch.Do(context.Background(), "visit-2", fn)
	assert.EqualValues(t, 2, atomic.LoadInt32(&runs))
}

func TestMemoryLatch_FailedRunIsForgotten(t *testing.T) {
	latch := NewMemoryLatch(time.Minute)
	boom := errors.New("database unavailable")

	_, err := latch.Do(context.Background(), "visit", func(context.Context) ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	out, err := latch.Do(context.Background(), "visit", func(context.Context) ([]byte, error) { return []byte("retry"), nil })
	require.NoError(t, err)
	assert.Equal(t, "retry", string(out))
}

func TestMemoryLatch_ExpiredOutcomeRunsAgain(t *testing.T) {
	latch := NewMemoryLatch(time.Minute)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	latch.now = func() time.Time { return now }

	var runs int32
	fn := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&runs, 1)
		return nil, nil
	}

	_, _ = latch.Do(context.Background(), "visit", fn)
	now = now.Add(2 * time.Minute)
	_, _ = latch.Do(context.Background(), "visit", fn)
	assert.EqualValues(t, 2, atomic.LoadInt32(&runs))
}

func TestMemoryLatch_WaiterHonoursContext(t *testing.T) {
	latch := NewMemoryLatch(time.Minute)
	release := make(chan struct{})
	defer close(release)

	started := make(chan struct{})
	go func() {
		_, _ = latch.Do(context.Background(), "visit", func(context.Context) ([]byte, error) {
			close(started)
			<-release
			return nil, nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := latch.Do(ctx, "visit", func(context.Context) ([]byte, error) { return nil, nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisKeys(t *testing.T) {
	assert.Equal(t, "checkin:visit:abc:lock", lockKey("abc"))
	assert.Equal(t, "checkin:visit:abc:result", resultKey("abc"))
}
