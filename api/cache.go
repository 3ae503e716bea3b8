package api

import (
	"context"
	"time"

	cache "github.com/krisalay/sharecache"
	"github.com/krisalay/sharecache/jobs"
	"github.com/krisalay/sharecache/notify"
	"github.com/krisalay/sharecache/types"
)

/*
Cache defines the PUBLIC API of one ephemeral entry cache.
This is a contract that guarantees certain behaviors, without exposing internals.
Sharding, eviction, expiry, event batching and concurrency are hidden behind
this interface.
*/
type Cache[P types.Payload] interface {

	/*
		Insert stores payload under a new unique id and returns the entry.

		BEHAVIOR:
		---------
		- The id is assigned here and never reused while the entry is live
		- ExpiresAt = now + ttl (ttl <= 0 uses the configured lifetime)
		- Emits ADD, then one DELETE per entry evicted to make room
	*/
	Insert(payload P, ttl time.Duration) *types.Entry[P]

	/*
		Put stores an entry under its own id, replacing any previous one.
		Always emits ADD after the store is updated.
	*/
	Put(entry *types.Entry[P])

	/*
		Get returns the entry if it is live.

		BEHAVIOR:
		---------
		- Expired or evicted ids are absent, never an error
		- A hit counts as a use for LRU ordering
	*/
	Get(id string) (*types.Entry[P], bool)

	/*
		Remove deletes one entry.

		This operation is idempotent:
		- Removing a non-existing id is safe
		- DELETE is emitted either way
	*/
	Remove(id string)

	/*
		Clear removes every entry in one logical step.
		Exactly one DELETE_ALL is emitted, never one DELETE per entry.
	*/
	Clear()

	// Keys and Values are point-in-time snapshots; they never block writers.
	Keys() []string
	Values() []*types.Entry[P]

	/*
		Subscribe attaches to the mutation feed.

		BEHAVIOR:
		---------
		- Events arrive in batches, at most one batch per window
		- Only events emitted after attachment are delivered
		- A subscriber that stops reading loses its own newest events, nobody else's
		- The subscription ends when ctx is done
	*/
	Subscribe(ctx context.Context) *notify.Subscription

	// Close stops background work and ends every subscription.
	Close()
}

/*
ResultStreams is the PUBLIC API of the session job registry.
*/
type ResultStreams interface {

	/*
		Open returns the result channel of a session, creating it if needed.
		Concurrent opens for the same session observe the same channel.
	*/
	Open(session string) *jobs.Channel

	/*
		Close tears the channel down if it is still the one registered for the session.
		Results pushed afterwards are discarded.
	*/
	Close(session string, ch *jobs.Channel)

	/*
		Dispatch runs a recognition job in the background and returns at once.

		BEHAVIOR:
		---------
		- supplier is only called on the worker
		- exactly one Result is pushed to the session, success or error
		- nothing is returned or thrown to the caller
	*/
	Dispatch(session string, supplier jobs.Supplier, contentType string)
}

var (
	_ Cache[types.Blob] = (*cache.ShardedCache[types.Blob])(nil)
	_ Cache[types.Text] = (*cache.ShardedCache[types.Text])(nil)
	_ ResultStreams     = (*jobs.Dispatcher)(nil)
)
