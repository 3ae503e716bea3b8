package types

// This file defines how the cache reports what it is doing.

/*
Metrics is what the cache wants to measure. Each method is one event in the
lifecycle of an entry or of a notification.
*/
type Metrics interface {

	// Hit is called when Get returns a live entry.
	Hit()

	// Miss is called when Get finds nothing (or only an expired entry).
	Miss()

	// Eviction is called when an entry is removed because the cache exceeded its cap.
	Eviction()

	// Expire is called when an entry is removed because it passed its expiry time.
	Expire()

	// Dropped is called when a subscriber buffer is full and an event is discarded.
	Dropped()
}

// NoopMetrics ignores every metric event, so callers never need nil checks.
type NoopMetrics struct{}

func (NoopMetrics) Hit()      {}
func (NoopMetrics) Miss()     {}
func (NoopMetrics) Eviction() {}
func (NoopMetrics) Expire()   {}
func (NoopMetrics) Dropped()  {}
