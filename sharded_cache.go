package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/krisalay/sharecache/engine"
	evict "github.com/krisalay/sharecache/eviction"
	"github.com/krisalay/sharecache/log"
	"github.com/krisalay/sharecache/notify"
	"github.com/krisalay/sharecache/shard"
	"github.com/krisalay/sharecache/types"
)

// DefaultSweepInterval is how often the janitor looks for expired entries.
const DefaultSweepInterval = 30 * time.Second

// Options configures one ShardedCache.
type Options struct {

	// Name labels logs and metrics ("files", "texts").
	Name string

	// Capacity is the maximum number of live entries.
	Capacity int

	// Shards splits the cap across independent locks. 1 keeps the LRU order exact.
	Shards int

	// Eviction picks the victim when the cap is exceeded.
	Eviction evict.PolicyType

	// Window and BufferSize configure the event Multicast.
	Window     time.Duration
	BufferSize int

	// SweepInterval drives the background janitor. Negative disables it.
	SweepInterval time.Duration
}

/*
ShardedCache is the main cache implementation.
This struct is the orchestrator that connects:
- shards (storage + eviction order)
- the engine (expiry rules, metrics, clock)
- the notifier (single serial worker per cache)
- the multicast (batched fan-out to subscribers)

Every write happens under the owning shard's lock and submits its event while
still holding it. Submission is an O(1) append that never waits, and doing it
under the lock makes the event order identical to the order in which the store
changed.
*/
type ShardedCache[P types.Payload] struct {
	name string

	// shards are the actual storage units. Each shard is an independent mini-cache.
	shards []*shard.Shard[*types.Entry[P]]

	// engine contains the rules of the cache: expiry, metrics and the clock.
	engine *engine.CacheEngine

	// selector decides which shard an id goes to.
	selector shard.Selector

	// capacity is the configured cap. Shards each hold capacity/len(shards).
	capacity int

	notifier  *notify.Notifier
	multicast *notify.Multicast

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewShardedCache[P types.Payload](opts Options, engine *engine.CacheEngine) *ShardedCache[P] {
	n, perShard := shard.Split(opts.Capacity, opts.Shards)
	policy := opts.Eviction
	if policy == "" {
		policy = evict.LRU
	}

	// Create shards
	s := make([]*shard.Shard[*types.Entry[P]], n)
	for i := range s {
		// Each shard gets its own eviction policy instance
		s[i] = shard.NewShard[*types.Entry[P]](policy, perShard)
	}

	mc := notify.NewMulticast(opts.Name, opts.Window, opts.BufferSize, engine.Metrics)

	c := &ShardedCache[P]{
		name:      opts.Name,
		shards:    s,
		engine:    engine,
		selector:  shard.FNVSelector{},
		capacity:  n * perShard,
		notifier:  notify.NewNotifier(mc),
		multicast: mc,
		stop:      make(chan struct{}),
	}

	interval := opts.SweepInterval
	if interval == 0 {
		interval = DefaultSweepInterval
	}
	if interval > 0 {
		c.wg.Add(1)
		go c.janitor(interval)
	}

	log.Info("cache created",
		log.FieldCache(opts.Name),
		zap.Int("capacity", c.capacity),
		zap.Int("shards", n),
		zap.String("eviction", string(policy)))

	return c
}

func (c *ShardedCache[P]) shardFor(id string) *shard.Shard[*types.Entry[P]] {
	return c.shards[c.selector.Index(id, len(c.shards))]
}

/*
Insert wraps payload in a new entry with a fresh id and stores it.

ttl overrides the configured lifetime for this entry; zero keeps the default.
The returned entry must not be modified.
*/
func (c *ShardedCache[P]) Insert(payload P, ttl time.Duration) *types.Entry[P] {
	now := c.engine.Now()
	ent := &types.Entry[P]{
		ID:        uuid.NewString(),
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: c.engine.Deadline(now, ttl),
	}
	c.Put(ent)
	return ent
}

/*
Put stores ent under ent.ID, replacing any previous entry.

BEHAVIOR:
---------
  - emits ADD once the store holds the new entry
  - if the shard is now over its cap, entries already past their deadline are
    removed first; only then is a live entry evicted per the policy
  - every removed entry emits one DELETE after the ADD that caused it
*/
func (c *ShardedCache[P]) Put(ent *types.Entry[P]) {
	sh := c.shardFor(ent.ID)

	sh.Mu.Lock()
	defer sh.Mu.Unlock()

	if old, ok := sh.Store.Get(ent.ID); ok {
		c.removed(old, types.CauseReplaced)
	}
	sh.Store.Put(ent.ID, ent)
	sh.Eviction.OnPut(ent.ID)

	c.notifier.Submit(types.AddedEvent(ent.Summary()))

	if sh.Store.Size() > sh.Capacity {
		c.purgeExpired(sh)
	}
	for sh.Store.Size() > sh.Capacity {
		victim := sh.Eviction.Evict()
		if victim == "" {
			break
		}
		old, ok := sh.Store.Get(victim)
		if !ok {
			continue
		}
		sh.Store.Delete(victim)
		c.removed(old, types.CauseCapacity)
	}
}

/*
Get returns the live entry for id.

An entry found past its deadline is removed on the spot (one DELETE) and
reported as absent. A hit refreshes the entry's position for LRU.
*/
func (c *ShardedCache[P]) Get(id string) (*types.Entry[P], bool) {
	sh := c.shardFor(id)

	// lock-free lookup
	ent, ok := sh.Store.Get(id)
	if !ok {
		c.engine.Metrics.Miss()
		return nil, false
	}

	if c.engine.IsExpired(ent.ExpiresAt) {
		c.expire(sh, ent)
		c.engine.Metrics.Miss()
		return nil, false
	}

	c.engine.Metrics.Hit()

	sh.Mu.Lock()
	sh.Eviction.OnGet(id)
	sh.Mu.Unlock()

	return ent, true
}

/*
TTL returns the remaining lifetime of id.

RETURN VALUES:
--------------
> 0 : time left before expiry
-1  : entry exists but never expires by time
-2  : entry does not exist or is already expired
*/
func (c *ShardedCache[P]) TTL(id string) time.Duration {
	ent, ok := c.shardFor(id).Store.Get(id)
	if !ok {
		return -2
	}
	if ent.ExpiresAt.IsZero() {
		return -1
	}
	d := ent.ExpiresAt.Sub(c.engine.Now())
	if d <= 0 {
		return -2
	}
	return d
}

/*
Remove deletes id and emits DELETE whether or not it was present.
Removing a missing id is not an error.
*/
func (c *ShardedCache[P]) Remove(id string) {
	sh := c.shardFor(id)

	sh.Mu.Lock()
	defer sh.Mu.Unlock()

	if old, ok := sh.Store.Get(id); ok {
		sh.Store.Delete(id)
		sh.Eviction.Remove(id)
		c.removed(old, types.CauseExplicit)
	}
	c.notifier.Submit(types.DeletedEvent(id))
}

/*
Clear drops every entry in one logical step and emits a single DELETE_ALL.

All shard locks are taken in index order, so no write can interleave between
the per-shard purges and the event.
*/
func (c *ShardedCache[P]) Clear() {
	for _, sh := range c.shards {
		sh.Mu.Lock()
	}

	removed := 0
	for _, sh := range c.shards {
		removed += sh.Store.Size()
		sh.Store.Clear()
		sh.Eviction.Reset()
	}
	c.notifier.Submit(types.ClearedAllEvent())

	for i := len(c.shards) - 1; i >= 0; i-- {
		c.shards[i].Mu.Unlock()
	}

	log.Debug("cache cleared", log.FieldCache(c.name), zap.Int("removed", removed))
}

// Keys returns the ids of all live entries at this instant.
func (c *ShardedCache[P]) Keys() []string {
	values := c.Values()
	keys := make([]string, len(values))
	for i, ent := range values {
		keys[i] = ent.ID
	}
	return keys
}

// Values returns all live entries at this instant, oldest first. It never blocks writers.
func (c *ShardedCache[P]) Values() []*types.Entry[P] {
	var out []*types.Entry[P]
	for _, sh := range c.shards {
		for _, ent := range sh.Store.Snapshot() {
			if !c.engine.IsExpired(ent.ExpiresAt) {
				out = append(out, ent)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len is the number of live entries.
func (c *ShardedCache[P]) Len() int {
	n := 0
	for _, sh := range c.shards {
		for _, ent := range sh.Store.Snapshot() {
			if !c.engine.IsExpired(ent.ExpiresAt) {
				n++
			}
		}
	}
	return n
}

// Capacity is the effective cap after splitting across shards.
func (c *ShardedCache[P]) Capacity() int {
	return c.capacity
}

// Subscribe attaches to the mutation feed. Cancel ctx or Close the subscription to detach.
func (c *ShardedCache[P]) Subscribe(ctx context.Context) *notify.Subscription {
	return c.multicast.Subscribe(ctx)
}

/*
Close stops the janitor, publishes any queued events and ends every subscription.
Writes after Close still update the store but emit nothing.
*/
func (c *ShardedCache[P]) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
		c.wg.Wait()
		c.notifier.Close()
		c.multicast.Close()
	})
}

// expire removes ent if it is still the stored entry for its id.
func (c *ShardedCache[P]) expire(sh *shard.Shard[*types.Entry[P]], ent *types.Entry[P]) bool {
	sh.Mu.Lock()
	defer sh.Mu.Unlock()

	cur, ok := sh.Store.Get(ent.ID)
	if !ok || cur != ent {
		return false
	}
	c.expireLocked(sh, ent)
	return true
}

// expireLocked removes ent as expired. The shard lock must be held.
func (c *ShardedCache[P]) expireLocked(sh *shard.Shard[*types.Entry[P]], ent *types.Entry[P]) {
	sh.Store.Delete(ent.ID)
	sh.Eviction.Remove(ent.ID)
	c.removed(ent, types.CauseExpired)
}

// purgeExpired drops every entry of sh past its deadline. The shard lock must be held.
func (c *ShardedCache[P]) purgeExpired(sh *shard.Shard[*types.Entry[P]]) int {
	n := 0
	for _, ent := range sh.Store.Snapshot() {
		if c.engine.IsExpired(ent.ExpiresAt) {
			c.expireLocked(sh, ent)
			n++
		}
	}
	return n
}

/*
removed is the removal hook. It runs under the shard lock for every entry that
leaves the store. It only records and enqueues: removals the store makes on its
own (expiry, capacity) get a synthesized DELETE here, the others are reported by
their caller.
*/
func (c *ShardedCache[P]) removed(ent *types.Entry[P], cause types.RemovalCause) {
	switch cause {
	case types.CauseCapacity:
		c.engine.Metrics.Eviction()
	case types.CauseExpired:
		c.engine.Metrics.Expire()
	}

	if cause.WasEvicted() {
		c.notifier.Submit(types.DeletedEvent(ent.ID))
	}

	log.Debug("entry removed",
		log.FieldCache(c.name),
		zap.String("id", ent.ID),
		zap.Stringer("cause", cause))
}

func (c *ShardedCache[P]) janitor(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

// sweep removes every entry past its deadline.
func (c *ShardedCache[P]) sweep() int {
	n := 0
	for _, sh := range c.shards {
		for _, ent := range sh.Store.Snapshot() {
			if c.engine.IsExpired(ent.ExpiresAt) && c.expire(sh, ent) {
				n++
			}
		}
	}
	return n
}
