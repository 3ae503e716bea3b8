package engine

import (
	"time"

	"github.com/krisalay/sharecache/expiration"
	"github.com/krisalay/sharecache/types"
)

/*
CacheEngine is the policy layer of the cache: it owns the rules, not the data.

It decides:
- When an entry is stamped with an expiry
- When an entry counts as expired
- How hits, misses, evictions and drops are recorded

It does NOT:
- Store entries
- Handle sharding or locking
- Decide eviction order
- Deliver events
*/
type CacheEngine struct {

	// Expiration computes and checks entry deadlines.
	// If nil, entries never expire by time.
	Expiration expiration.Strategy

	// Metrics records what the cache is doing.
	Metrics types.Metrics

	// Clock returns the current time. Tests replace it to move time without sleeping.
	Clock func() time.Time
}

// NewCacheEngine creates a CacheEngine. A nil metrics sink is replaced with NoopMetrics.
func NewCacheEngine(exp expiration.Strategy, metrics types.Metrics) *CacheEngine {
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	return &CacheEngine{
		Expiration: exp,
		Metrics:    metrics,
		Clock:      time.Now,
	}
}

func (e *CacheEngine) Now() time.Time {
	return e.Clock()
}

// Deadline returns the expiry for an entry inserted now with the given ttl override.
func (e *CacheEngine) Deadline(now time.Time, ttl time.Duration) time.Time {
	if e.Expiration == nil {
		return time.Time{}
	}
	return e.Expiration.Deadline(now, ttl)
}

// IsExpired checks a deadline against the current clock.
func (e *CacheEngine) IsExpired(deadline time.Time) bool {
	return e.Expiration != nil &&
		e.Expiration.IsExpired(deadline, e.Clock())
}
