package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/blood-drive-checkin/internal/domain"
)

const counterTTL = 72 * time.Hour

// RedisAssigner advances a per-campaign Redis counter with INCR. The counter is seeded once from the
// ledger maximum and re-seeded from it after any failed commit, so a number that was never stored is
// handed out again.
type RedisAssigner struct {
	client *redis.Client
	source MaxSource
	locks  *keyedMutex
	opts   options
}

// NewRedisAssigner builds a counter-backed assigner.
func NewRedisAssigner(client *redis.Client, source MaxSource, opts ...Option) *RedisAssigner {
	return &RedisAssigner{
		client: client,
		source: source,
		locks:  newKeyedMutex(),
		opts:   buildOptions(opts),
	}
}

// CounterKey names the Redis key holding a campaign's last issued queue number.
func CounterKey(campaignID string) string {
	return fmt.Sprintf("checkin:campaign:%s:queue", campaignID)
}

// Assign implements Assigner.
func (a *RedisAssigner) Assign(ctx context.Context, campaignID string, commit CommitFunc) (*domain.Registration, error) {
	unlock := a.locks.Lock(campaignID)
	defer unlock()

	key := CounterKey(campaignID)
	if err := a.ensureSeeded(ctx, key, campaignID); err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		next, err := a.client.Incr(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("advance queue counter: %w", err)
		}
		reg, err := commit(ctx, int(next))
		if err == nil {
			return reg, nil
		}
		retry := shouldRetry(a.opts, campaignID, err, attempt)
		if reseedErr := a.reseed(ctx, key, campaignID); reseedErr != nil && retry {
			return nil, reseedErr
		}
		if !retry {
			return nil, err
		}
	}
}

func (a *RedisAssigner) ensureSeeded(ctx context.Context, key, campaignID string) error {
	exists, err := a.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("check queue counter: %w", err)
	}
	if exists > 0 {
		return nil
	}
	max, err := a.source.MaxQueueNumber(ctx, campaignID)
	if err != nil {
		return err
	}
	if err := a.client.SetNX(ctx, key, max, counterTTL).Err(); err != nil {
		return fmt.Errorf("seed queue counter: %w", err)
	}
	return nil
}

func (a *RedisAssigner) reseed(ctx context.Context, key, campaignID string) error {
	max, err := a.source.MaxQueueNumber(ctx, campaignID)
	if err != nil {
		return err
	}
	if err := a.client.Set(ctx, key, max, counterTTL).Err(); err != nil {
		return fmt.Errorf("reseed queue counter: %w", err)
	}
	return nil
}
