package queue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/blood-drive-checkin/internal/domain"
	"github.com/spec-kit/blood-drive-checkin/internal/repository"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func seedLedger(l *memoryLedger, campaignID string, numbers ...int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.assigned[campaignID] == nil {
		l.assigned[campaignID] = make(map[int]bool)
	}
	for _, n := range numbers {
		l.assigned[campaignID][n] = true
	}
}

func TestRedisAssigner_SeedsFromLedgerMax(t *testing.T) {
	mr, client := newTestRedis(t)
	ledger := newMemoryLedger()
	seedLedger(ledger, "camp-a", 1, 2, 3, 4, 5)
	assigner := NewRedisAssigner(client, ledger)

	reg, err := assigner.Assign(context.Background(), "camp-a", ledger.commitFor("camp-a"))
	require.NoError(t, err)
	assert.Equal(t, 6, *reg.QueueNumber)

	value, err := mr.Get(CounterKey("camp-a"))
	require.NoError(t, err)
	assert.Equal(t, "6", value)
	assert.Equal(t, counterTTL, mr.TTL(CounterKey("camp-a")))
}

func TestRedisAssigner_IncrementsSequentially(t *testing.T) {
	_, client := newTestRedis(t)
	ledger := newMemoryLedger()
	assigner := NewRedisAssigner(client, ledger)

	var got []int
	for i := 0; i < 4; i++ {
		reg, err := assigner.Assign(context.Background(), "camp-a", ledger.commitFor("camp-a"))
		require.NoError(t, err)
		got = append(got, *reg.QueueNumber)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, got)
}

func TestRedisAssigner_ExistingCounterIsNotReseeded(t *testing.T) {
	mr, client := newTestRedis(t)
	require.NoError(t, mr.Set(CounterKey("camp-a"), "10"))
	ledger := newMemoryLedger()
	seedLedger(ledger, "camp-a", 1, 2)
	assigner := NewRedisAssigner(client, ledger)

	reg, err := assigner.Assign(context.Background(), "camp-a", ledger.commitFor("camp-a"))
	require.NoError(t, err)
	assert.Equal(t, 11, *reg.QueueNumber)
}

func TestRedisAssigner_ConcurrentAssignmentsAreUnique(t *testing.T) {
	_, client := newTestRedis(t)
	ledger := newMemoryLedger()
	assigner := NewRedisAssigner(client, ledger)

	const workers = 10
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg, err := assigner.Assign(context.Background(), "camp-a", ledger.commitFor("camp-a"))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			got = append(got, *reg.QueueNumber)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Ints(got)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, got)
}

func TestRedisAssigner_ReseedsWhenCounterFallsBehindLedger(t *testing.T) {
	mr, client := newTestRedis(t)
	require.NoError(t, mr.Set(CounterKey("camp-a"), "1"))
	ledger := newMemoryLedger()
	seedLedger(ledger, "camp-a", 1, 2, 3)
	conflicts := 0
	assigner := NewRedisAssigner(client, ledger, WithConflictHook(func(string) { conflicts++ }))

	reg, err := assigner.Assign(context.Background(), "camp-a", ledger.commitFor("camp-a"))
	require.NoError(t, err)
	assert.Equal(t, 4, *reg.QueueNumber)
	assert.Equal(t, 1, conflicts)
}

func TestRedisAssigner_ConflictSurfacesWithoutRetries(t *testing.T) {
	mr, client := newTestRedis(t)
	require.NoError(t, mr.Set(CounterKey("camp-a"), "0"))
	ledger := newMemoryLedger()
	seedLedger(ledger, "camp-a", 1)
	assigner := NewRedisAssigner(client, ledger, WithMaxRetries(0))

	_, err := assigner.Assign(context.Background(), "camp-a", ledger.commitFor("camp-a"))
	assert.ErrorIs(t, err, repository.ErrQueueNumberTaken)

	value, err := mr.Get(CounterKey("camp-a"))
	require.NoError(t, err)
	assert.Equal(t, "1", value)
}

func TestRedisAssigner_FailedCommitLeavesNoGap(t *testing.T) {
	_, client := newTestRedis(t)
	ledger := newMemoryLedger()
	assigner := NewRedisAssigner(client, ledger)
	boom := errors.New("write failed")

	first, err := assigner.Assign(context.Background(), "camp-a", ledger.commitFor("camp-a"))
	require.NoError(t, err)
	require.Equal(t, 1, *first.QueueNumber)

	_, err = assigner.Assign(context.Background(), "camp-a", func(context.Context, int) (*domain.Registration, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	next, err := assigner.Assign(context.Background(), "camp-a", ledger.commitFor("camp-a"))
	require.NoError(t, err)
	assert.Equal(t, 2, *next.QueueNumber)
}

func TestRedisAssigner_CampaignsAreIndependent(t *testing.T) {
	_, client := newTestRedis(t)
	ledger := newMemoryLedger()
	seedLedger(ledger, "camp-b", 7)
	assigner := NewRedisAssigner(client, ledger)

	a, err := assigner.Assign(context.Background(), "camp-a", ledger.commitFor("camp-a"))
	require.NoError(t, err)
	b, err := assigner.Assign(context.Background(), "camp-b", ledger.commitFor("camp-b"))
	require.NoError(t, err)

	assert.Equal(t, 1, *a.QueueNumber)
	assert.Equal(t, 8, *b.QueueNumber)
}
