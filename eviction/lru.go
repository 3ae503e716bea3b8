// This file implements LRU eviction.

package eviction

import (
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// lru keeps recency order in a simplelru list. Values are unused; only the key order matters.
type lru struct {
	order *simplelru.LRU[string, struct{}]
}

// newLRU sizes the list one above the shard capacity: the shard inserts first and
// evicts afterwards, so for a moment it tracks capacity+1 ids. The list must never
// drop an id on its own, or the policy and the store would disagree.
func newLRU(capacity int) *lru {
	if capacity < 1 {
		capacity = 1
	}
	order, err := simplelru.NewLRU[string, struct{}](capacity+1, nil)
	if err != nil {
		panic(err)
	}
	return &lru{order: order}
}

// OnGet marks the id as most recently used.
func (l *lru) OnGet(k string) {
	l.order.Get(k)
}

// OnPut inserts the id, or refreshes its position if it is already tracked.
func (l *lru) OnPut(k string) {
	l.order.Add(k, struct{}{})
}

// Evict removes the least recently used id.
func (l *lru) Evict() string {
	k, _, ok := l.order.RemoveOldest()
	if !ok {
		return ""
	}
	return k
}

func (l *lru) Remove(k string) {
	l.order.Remove(k)
}

func (l *lru) Reset() {
	l.order.Purge()
}

func (l *lru) Len() int {
	return l.order.Len()
}
