package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/apperrors"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func newRedisLimiter(t *testing.T, policy Policy, clock *fakeClock) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLimiter(client, policy)
	l.now = clock.Now
	return l, mr
}

func newMemoryLimiter(policy Policy, clock *fakeClock) *MemoryLimiter {
	l := NewMemoryLimiter(policy)
	l.now = clock.Now
	return l
}

// limiterCases runs the same behavioral checks against every backend.
func limiterCases(t *testing.T, build func(t *testing.T, policy Policy, clock *fakeClock) Limiter) {
	ctx := context.Background()

	t.Run("allows up to the limit then denies", func(t *testing.T) {
		clock := newClock()
		l := build(t, Policy{Limit: 3, Window: time.Minute}, clock)

		for i := 0; i < 3; i++ {
			d, err := l.Allow(ctx, "user-1")
			require.NoError(t, err)
			assert.True(t, d.Allowed, "request %d", i+1)
			assert.Equal(t, 2-i, d.Remaining)
			clock.Advance(10 * time.Second)
		}

		d, err := l.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, 0, d.Remaining)
		assert.Equal(t, 30*time.Second, d.RetryAfter)
	})

	t.Run("keys are independent", func(t *testing.T) {
		clock := newClock()
		l := build(t, Policy{Limit: 1, Window: time.Minute}, clock)

		d, err := l.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)

		d, err = l.Allow(ctx, "user-2")
		require.NoError(t, err)
		assert.True(t, d.Allowed)

		d, err = l.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.False(t, d.Allowed)
	})

	t.Run("window slides", func(t *testing.T) {
		clock := newClock()
		l := build(t, Policy{Limit: 2, Window: time.Minute}, clock)

		for i := 0; i < 2; i++ {
			d, err := l.Allow(ctx, "user-1")
			require.NoError(t, err)
			assert.True(t, d.Allowed)
		}
		clock.Advance(30 * time.Second)
		d, err := l.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.False(t, d.Allowed)

		clock.Advance(31 * time.Second)
		d, err = l.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 1, d.Remaining)
	})

	t.Run("denied requests do not extend the window", func(t *testing.T) {
		clock := newClock()
		l := build(t, Policy{Limit: 1, Window: time.Minute}, clock)

		_, err := l.Allow(ctx, "user-1")
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			clock.Advance(10 * time.Second)
			d, err := l.Allow(ctx, "user-1")
			require.NoError(t, err)
			assert.False(t, d.Allowed)
		}
		clock.Advance(11 * time.Second)
		d, err := l.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})
}

func TestMemoryLimiter(t *testing.T) {
	limiterCases(t, func(t *testing.T, policy Policy, clock *fakeClock) Limiter {
		return newMemoryLimiter(policy, clock)
	})
}

func TestRedisLimiter(t *testing.T) {
	limiterCases(t, func(t *testing.T, policy Policy, clock *fakeClock) Limiter {
		l, _ := newRedisLimiter(t, policy, clock)
		return l
	})
}

func TestMemoryLimiter_Sweep(t *testing.T) {
	clock := newClock()
	l := newMemoryLimiter(Policy{Limit: 5, Window: time.Minute}, clock)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "old")
	clock.Advance(45 * time.Second)
	_, _ = l.Allow(ctx, "recent")
	clock.Advance(20 * time.Second)

	assert.Equal(t, 1, l.Sweep())
	assert.NotContains(t, l.logs, "old")
	assert.Contains(t, l.logs, "recent")
}

func TestRedisLimiter_SetsKeyExpiry(t *testing.T) {
	clock := newClock()
	l, mr := newRedisLimiter(t, Policy{Limit: 5, Window: time.Minute}, clock)

	_, err := l.Allow(context.Background(), "user-1")
	require.NoError(t, err)

	assert.True(t, mr.Exists("ratelimit:user-1"))
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:user-1"))
}

func TestRedisLimiter_StoreUnavailable(t *testing.T) {
	clock := newClock()
	l, mr := newRedisLimiter(t, Policy{Limit: 5, Window: time.Minute}, clock)
	mr.Close()

	_, err := l.Allow(context.Background(), "user-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsDatabaseError(err))
}

func TestNew(t *testing.T) {
	l, err := New("", Policy{}, nil)
	require.NoError(t, err)
	mem, ok := l.(*MemoryLimiter)
	require.True(t, ok)
	assert.Equal(t, DefaultLimit, mem.policy.Limit)
	assert.Equal(t, DefaultWindow, mem.policy.Window)

	_, err = New(BackendRedis, Policy{}, nil)
	assert.True(t, apperrors.IsBadRequestError(err))

	_, err = New("memcached", Policy{}, nil)
	assert.True(t, apperrors.IsBadRequestError(err))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	l, err = New(BackendRedis, Policy{Limit: 2, Window: time.Second}, client)
	require.NoError(t, err)
	assert.IsType(t, &RedisLimiter{}, l)
}
