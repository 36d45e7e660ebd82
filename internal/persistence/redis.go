package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/blood-drive-checkin/internal/config"
)

const redisConnectTimeout = 3 * time.Second

// ErrRedisDisabled is returned by Ping when no component was configured to use Redis.
var ErrRedisDisabled = errors.New("redis not enabled")

// Redis holds the client shared by the counter-backed queue assigner and the visit latch.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects only when cfg selects a Redis-backed queue strategy or visit latch. Those
// components cannot start without it, so an unreachable server is an error rather than a warning.
func NewRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Redis, error) {
	if !cfg.UsesRedis() {
		logger.Info("redis not required; queue and visit latch use in-process backends")
		return &Redis{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: redisConnectTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis at %s: %w", cfg.Redis.Addr, err)
	}

	logger.Info("connected to redis",
		zap.String("addr", cfg.Redis.Addr),
		zap.Int("db", cfg.Redis.DB),
		zap.String("queue_strategy", cfg.Queue.Strategy),
		zap.String("visit_backend", cfg.Visit.Backend),
	)
	return &Redis{Client: client}, nil
}

// Enabled reports whether a client was opened.
func (r *Redis) Enabled() bool {
	return r != nil && r.Client != nil
}

// Close closes the client.
func (r *Redis) Close() {
	if r.Enabled() {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return ErrRedisDisabled
	}
	return r.Client.Ping(ctx).Err()
}
