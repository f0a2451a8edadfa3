package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/apperrors"
	"gitlab.com/timkado/api/buyer-lead-crm/pkg/utils"
)

const redisKeyPrefix = "ratelimit:"

// RedisLimiter keeps one sorted set per key, scored by request time in microseconds,
// so that every instance behind a load balancer shares the same window.
type RedisLimiter struct {
	client redis.UniversalClient
	policy Policy
	now    func() time.Time
}

// NewRedisLimiter creates a limiter backed by client.
func NewRedisLimiter(client redis.UniversalClient, policy Policy) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		policy: policy.withDefaults(),
		now:    utils.Now,
	}
}

// Allow trims the window, counts it and tentatively records the request in one
// MULTI/EXEC. A request that overflows the window is removed again.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	redisKey := redisKeyPrefix + key
	member := strconv.FormatInt(now.UnixMicro(), 10) + "-" + uuid.NewString()
	cutoff := now.Add(-l.policy.Window).UnixMicro()

	var card *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(cutoff, 10))
		card = pipe.ZCard(ctx, redisKey)
		pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixMicro()), Member: member})
		pipe.PExpire(ctx, redisKey, l.policy.Window)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("%w: rate limit pipeline: %w", apperrors.ErrDatabase, err)
	}

	count := int(card.Val())
	if count < l.policy.Limit {
		return Decision{Allowed: true, Remaining: l.policy.Limit - count - 1}, nil
	}

	if err := l.client.ZRem(ctx, redisKey, member).Err(); err != nil {
		return Decision{}, fmt.Errorf("%w: rate limit rollback: %w", apperrors.ErrDatabase, err)
	}

	retryAfter := l.policy.Window
	oldest, err := l.client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
	if err == nil && len(oldest) == 1 {
		expiresAt := time.UnixMicro(int64(oldest[0].Score)).Add(l.policy.Window)
		retryAfter = expiresAt.Sub(now)
	}
	if retryAfter < 0 {
		retryAfter = 0
	}
	return Decision{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
}
