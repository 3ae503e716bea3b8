// This file defines how cache entries expire over time.

package expiration

import "time"

/*
Strategy decides when an entry stops being live. Instead of hard-coding the
rule into the cache, the engine asks the strategy, so the rule can be swapped.
*/
type Strategy interface {

	// Deadline computes the absolute expiry of an entry inserted at now.
	// ttl is the per-insertion override; zero or negative means "use the default".
	// A zero result means the entry never expires by time.
	Deadline(now time.Time, ttl time.Duration) time.Time

	// IsExpired reports whether an entry with the given deadline is dead at now.
	IsExpired(deadline, now time.Time) bool
}
