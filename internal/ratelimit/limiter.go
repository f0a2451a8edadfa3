package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gitlab.com/timkado/api/buyer-lead-crm/internal/apperrors"
)

const (
	DefaultLimit  = 10
	DefaultWindow = 60 * time.Second

	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long the caller should wait before the oldest request
	// in the window expires. Zero when Allowed.
	RetryAfter time.Duration
}

// Limiter admits at most a fixed number of requests per key within a sliding window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Policy is the sliding-window policy shared by every backend.
type Policy struct {
	Limit  int
	Window time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Window <= 0 {
		p.Window = DefaultWindow
	}
	return p
}

// New builds the limiter selected by backend. client is only used by the redis backend.
func New(backend string, policy Policy, client redis.UniversalClient) (Limiter, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemoryLimiter(policy), nil
	case BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("%w: redis rate limiter requires a redis client", apperrors.ErrBadRequest)
		}
		return NewRedisLimiter(client, policy), nil
	default:
		return nil, fmt.Errorf("%w: unknown rate limit backend %q", apperrors.ErrBadRequest, backend)
	}
}
