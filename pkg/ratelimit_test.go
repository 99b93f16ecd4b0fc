package pkg

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func limiterFixture(t *testing.T, globalRate, burst int) (*DistributedLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewDistributedLimiter(client, "test:score_rate", globalRate, burst, time.Second, zap.NewNop()), mr
}

func TestLimiterUnlimitedWhenRateZero(t *testing.T) {
	limiter, _ := limiterFixture(t, 0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow(context.Background()))
	}
}

func TestLimiterAllowsWithinBurst(t *testing.T) {
	limiter, mr := limiterFixture(t, 100, 5)

	for i := 0; i < 5; i++ {
		require.True(t, limiter.Allow(context.Background()), "request %d should pass", i)
	}

	got, err := mr.Get("test:score_rate")
	require.NoError(t, err)
	assert.Equal(t, "5", got)
}

func TestLimiterRejectsBeyondGlobalCount(t *testing.T) {
	limiter, mr := limiterFixture(t, 100, 3)

	// Another instance already consumed the global budget.
	require.NoError(t, mr.Set("test:score_rate", "3"))

	assert.False(t, limiter.Allow(context.Background()))
}

func TestLimiterFallsBackWhenRedisDown(t *testing.T) {
	limiter, mr := limiterFixture(t, 100, 5)
	mr.Close()

	// Redis being unreachable must not block scoring.
	assert.True(t, limiter.Allow(context.Background()))
}
