package visit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPollInterval = 50 * time.Millisecond
	defaultWaitTimeout  = 5 * time.Second
	defaultLockTTL      = 15 * time.Second
)

// RedisLatch shares visit outcomes across service instances.
type RedisLatch struct {
	client       *redis.Client
	ttl          time.Duration
	lockTTL      time.Duration
	pollInterval time.Duration
	waitTimeout  time.Duration
}

// NewRedisLatch builds a Redis-backed latch whose outcomes live for ttl. The in-flight lock expires
// much sooner so a crashed holder does not block the visit for the whole outcome window.
func NewRedisLatch(client *redis.Client, ttl time.Duration) *RedisLatch {
	lockTTL := defaultLockTTL
	if ttl < lockTTL {
		lockTTL = ttl
	}
	return &RedisLatch{
		client:       client,
		ttl:          ttl,
		lockTTL:      lockTTL,
		pollInterval: defaultPollInterval,
		waitTimeout:  defaultWaitTimeout,
	}
}

func lockKey(key string) string   { return fmt.Sprintf("checkin:visit:%s:lock", key) }
func resultKey(key string) string { return fmt.Sprintf("checkin:visit:%s:result", key) }

// Do implements Latch.
func (l *RedisLatch) Do(ctx context.Context, key string, fn Func) ([]byte, error) {
	if value, ok, err := l.result(ctx, key); err != nil || ok {
		return value, err
	}

	acquired, err := l.client.SetNX(ctx, lockKey(key), "1", l.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire visit latch: %w", err)
	}
	if acquired {
		value, err := fn(ctx)
		if err != nil {
			_ = l.client.Del(ctx, lockKey(key)).Err()
			return nil, err
		}
		if err := l.client.Set(ctx, resultKey(key), value, l.ttl).Err(); err != nil {
			return nil, fmt.Errorf("store visit outcome: %w", err)
		}
		return value, nil
	}
	return l.await(ctx, key)
}

func (l *RedisLatch) result(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := l.client.Get(ctx, resultKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read visit outcome: %w", err)
	}
	return value, true, nil
}

func (l *RedisLatch) await(ctx context.Context, key string) ([]byte, error) {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(l.waitTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrInProgress
		case <-ticker.C:
			if value, ok, err := l.result(ctx, key); err != nil || ok {
				return value, err
			}
		}
	}
}
