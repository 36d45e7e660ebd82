package persistence

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/blood-drive-checkin/internal/config"
)

func redisConfig(addr, strategy, backend string) *config.Config {
	return &config.Config{
		Redis: config.RedisConfig{Addr: addr},
		Queue: config.QueueConfig{Strategy: strategy},
		Visit: config.VisitConfig{Backend: backend},
	}
}

func TestNewRedis_SkippedWhenNothingUsesIt(t *testing.T) {
	cfg := redisConfig("127.0.0.1:1", config.QueueStrategyDatabase, config.VisitBackendMemory)

	r, err := NewRedis(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, r.Enabled())
	assert.ErrorIs(t, r.Ping(context.Background()), ErrRedisDisabled)
	r.Close()
}

func TestNewRedis_ConnectsForRedisQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := redisConfig(mr.Addr(), config.QueueStrategyRedis, config.VisitBackendMemory)

	r, err := NewRedis(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.Enabled())
	assert.NoError(t, r.Ping(context.Background()))
}

func TestNewRedis_UnreachableServerFailsStartup(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	cfg := redisConfig(addr, config.QueueStrategyDatabase, config.VisitBackendRedis)

	_, err := NewRedis(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect redis")
}

func TestRedis_PingReportsLostServer(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := redisConfig(mr.Addr(), config.QueueStrategyRedis, config.VisitBackendRedis)
	r, err := NewRedis(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer r.Close()

	mr.Close()
	assert.Error(t, r.Ping(context.Background()))
}
