package shard

import (
	"sync"

	"github.com/krisalay/sharecache/eviction"
)

/*
Shard is an independent slice of the cache. Each shard has:
- its own copy-on-write Store (lock-free reads)
- its own eviction Policy instance (no shared ordering state)
- its own write mutex

With one shard the cap and the LRU order are exact; with N shards each shard
holds at most Capacity entries, so the total stays within the configured cap
but recency is tracked per shard.
*/
type Shard[V any] struct {

	// Store holds the entries of this shard.
	Store Store[V]

	// Eviction picks the victim when the shard is over Capacity.
	Eviction eviction.Policy

	// Capacity is the maximum population of this shard.
	Capacity int

	// Mu serializes every write: Put, Delete, Clear and Eviction updates.
	// Reads of Store never take it.
	Mu sync.Mutex
}

func NewShard[V any](policy eviction.PolicyType, capacity int) *Shard[V] {
	return &Shard[V]{
		Store:    NewCOWStore[V](),
		Eviction: eviction.NewEvictionPolicy(policy, capacity),
		Capacity: capacity,
	}
}

// Split divides a total cap across n shards so that the sum never exceeds total.
// n is reduced when total is smaller than n, so every shard can hold at least one entry.
func Split(total, n int) (shards, perShard int) {
	if n < 1 {
		n = 1
	}
	if total < 1 {
		total = 1
	}
	if n > total {
		n = total
	}
	return n, total / n
}
