package expiration

import "time"

/*
ExpireAfterWrite fixes the deadline once, at insertion: reads never extend it.
An uploaded file stays shareable for exactly TTL, no matter how often it is
downloaded.
*/
type ExpireAfterWrite struct {

	// TTL is the default lifetime when an insertion does not carry its own.
	// Zero disables time-based expiry for such insertions.
	TTL time.Duration
}

func (e *ExpireAfterWrite) Deadline(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = e.TTL
	}
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

// IsExpired is true once now reaches the deadline (now >= deadline).
func (e *ExpireAfterWrite) IsExpired(deadline, now time.Time) bool {
	return !deadline.IsZero() && !now.Before(deadline)
}
