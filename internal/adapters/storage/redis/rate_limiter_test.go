package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T) (*RateLimiterAdapter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	adapter, err := NewRateLimiterAdapter(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })
	return adapter, mr
}

func TestRateLimiterAdapter_IsAllowed(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := adapter.IsAllowed(ctx, "short:10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i+1)
	}

	allowed, err := adapter.IsAllowed(ctx, "short:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	// other keys are counted separately
	allowed, err = adapter.IsAllowed(ctx, "short:10.0.0.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiterAdapter_WindowSlides(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()
	window := 100 * time.Millisecond

	allowed, err := adapter.IsAllowed(ctx, "k", 1, window)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = adapter.IsAllowed(ctx, "k", 1, window)
	require.NoError(t, err)
	assert.False(t, allowed)

	time.Sleep(2 * window)

	allowed, err = adapter.IsAllowed(ctx, "k", 1, window)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiterAdapter_SetsExpiry(t *testing.T) {
	adapter, mr := newTestAdapter(t)

	_, err := adapter.IsAllowed(context.Background(), "ttl", 5, 30*time.Second)
	require.NoError(t, err)

	assert.True(t, mr.Exists("ratelimit:ttl"))
	assert.Equal(t, 30*time.Second, mr.TTL("ratelimit:ttl"))
}

func TestRateLimiterAdapter_RedisDown(t *testing.T) {
	adapter, mr := newTestAdapter(t)
	mr.Close()

	_, err := adapter.IsAllowed(context.Background(), "k", 1, time.Second)

	assert.Error(t, err)
}

func TestNewRateLimiterAdapter_Unreachable(t *testing.T) {
	_, err := NewRateLimiterAdapter("127.0.0.1:1")

	assert.ErrorContains(t, err, "failed to connect to Redis")
}
