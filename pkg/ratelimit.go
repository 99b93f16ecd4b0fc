package pkg

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// DistributedLimiter pairs a process-local token bucket with a shared Redis
// counter so scoring throughput is bounded across all API replicas.
type DistributedLimiter struct {
	local  *rate.Limiter
	redis  *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewDistributedLimiter builds a limiter over the given Redis key. A
// globalRate of 0 disables limiting entirely.
func NewDistributedLimiter(redisClient *redis.Client, key string, globalRate, burst int, ttl time.Duration, logger *zap.Logger) *DistributedLimiter {
	var local *rate.Limiter
	if globalRate > 0 {
		local = rate.NewLimiter(rate.Limit(globalRate), burst)
	}
	return &DistributedLimiter{
		local:  local,
		redis:  redisClient,
		key:    key,
		ttl:    ttl,
		logger: logger,
	}
}

// Allow reports whether a request may proceed. The local bucket is checked
// first; the Redis counter then enforces the shared burst. Redis failures
// fall back to the local decision so an outage never blocks scoring.
func (d *DistributedLimiter) Allow(ctx context.Context) bool {
	if d.local == nil {
		return true
	}

	if !d.local.Allow() {
		return false
	}

	pipe := d.redis.Pipeline()
	incr := pipe.Incr(ctx, d.key)
	pipe.Expire(ctx, d.key, d.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		d.logger.Error("redis rate limit check failed, using local decision", zap.Error(err))
		return true
	}

	if count := incr.Val(); count > int64(d.local.Burst()) {
		d.logger.Warn("global scoring rate limit exceeded", zap.Int64("count", count))
		return false
	}
	return true
}
