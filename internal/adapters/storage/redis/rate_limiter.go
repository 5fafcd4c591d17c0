package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimiterAdapter is a Redis implementation of the RateLimiterRepository port.
type RateLimiterAdapter struct {
	rdb *redis.Client
}

// NewRateLimiterAdapter creates and tests a new connection to Redis and returns the adapter.
func NewRateLimiterAdapter(addr string) (*RateLimiterAdapter, error) {
	rdb, err := NewClient(addr)
	if err != nil {
		return nil, err
	}
	return &RateLimiterAdapter{rdb: rdb}, nil
}

// IsAllowed implements a sliding window on a sorted set: members are request timestamps,
// everything older than the window is dropped before counting.
func (a *RateLimiterAdapter) IsAllowed(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := "ratelimit:" + key
	now := time.Now().UnixNano()
	windowStart := now - window.Nanoseconds()

	var count *redis.IntCmd
	_, err := a.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		// 1. Delete all old entries (that have gone beyond the window)
		pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(windowStart, 10))
		// 2. Add the current request
		pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now), Member: uuid.NewString()})
		// 3. Count the number of requests in the window
		count = pipe.ZCard(ctx, redisKey)
		pipe.PExpire(ctx, redisKey, window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis sliding window failed: %w", err)
	}

	return count.Val() <= int64(limit), nil
}

// Close gracefully closes the Redis connection.
func (a *RateLimiterAdapter) Close() error {
	return a.rdb.Close()
}
