package ratelimit

import (
	"context"
	"sync"
	"time"

	"gitlab.com/timkado/api/buyer-lead-crm/pkg/utils"
)

// MemoryLimiter keeps a timestamp log per key in process memory. State is lost on restart
// and is not shared between instances.
type MemoryLimiter struct {
	policy Policy
	now    func() time.Time

	mu   sync.Mutex
	logs map[string][]time.Time
}

// NewMemoryLimiter creates an in-process sliding-window limiter.
func NewMemoryLimiter(policy Policy) *MemoryLimiter {
	return &MemoryLimiter{
		policy: policy.withDefaults(),
		now:    utils.Now,
		logs:   make(map[string][]time.Time),
	}
}

// Allow records a request for key when the window still has room.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	log := evict(l.logs[key], now.Add(-l.policy.Window))
	if len(log) >= l.policy.Limit {
		l.logs[key] = log
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: log[0].Add(l.policy.Window).Sub(now),
		}, nil
	}

	log = append(log, now)
	l.logs[key] = log
	return Decision{Allowed: true, Remaining: l.policy.Limit - len(log)}, nil
}

// Sweep drops keys whose every entry has expired. It returns the number of keys removed.
func (l *MemoryLimiter) Sweep() int {
	cutoff := l.now().Add(-l.policy.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, log := range l.logs {
		log = evict(log, cutoff)
		if len(log) == 0 {
			delete(l.logs, key)
			removed++
			continue
		}
		l.logs[key] = log
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (l *MemoryLimiter) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// evict removes entries at or before cutoff. log is ordered oldest first.
func evict(log []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return log
	}
	return append(log[:0], log[i:]...)
}
