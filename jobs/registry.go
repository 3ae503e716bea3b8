package jobs

import (
	"sync"

	"github.com/krisalay/sharecache/log"
	"github.com/krisalay/sharecache/metrics"
	"github.com/krisalay/sharecache/types"
)

/*
Channel is the result stream of one session.

It holds at most one undelivered Result. The results channel is never closed;
readers watch Done to learn that the session was torn down.
*/
type Channel struct {
	session string
	results chan types.Result
	done    chan struct{}

	closeOnce sync.Once
}

func newChannel(session string) *Channel {
	return &Channel{
		session: session,
		results: make(chan types.Result, 1),
		done:    make(chan struct{}),
	}
}

func (c *Channel) Session() string {
	return c.session
}

// Results delivers job results in completion order.
func (c *Channel) Results() <-chan types.Result {
	return c.results
}

// Done is closed when the channel is torn down.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

func (c *Channel) close() bool {
	closed := false
	c.closeOnce.Do(func() {
		close(c.done)
		closed = true
	})
	return closed
}

/*
Registry maps session ids to their result channels.

Open is get-or-create under one lock, so concurrent opens for the same session
always observe the same Channel. Close is the explicit teardown invoked when the
subscriber's stream ends; nothing is reclaimed implicitly.
*/
type Registry struct {
	mu       sync.Mutex
	channels map[string]*Channel
}

func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]*Channel),
	}
}

// Open returns the channel registered for session, creating it if there is none.
func (r *Registry) Open(session string) *Channel {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, ok := r.channels[session]; ok {
		return ch
	}
	ch := newChannel(session)
	r.channels[session] = ch
	metrics.Sessions.Inc()
	log.Debug("session channel opened", log.FieldSession(session))
	return ch
}

// Lookup returns the live channel of session, if any.
func (r *Registry) Lookup(session string) (*Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[session]
	return ch, ok
}

/*
Close tears ch down. The registry entry is removed only if ch is still the
channel registered for session, so a stale teardown never removes a newer
channel.
*/
func (r *Registry) Close(session string, ch *Channel) {
	r.mu.Lock()
	if cur, ok := r.channels[session]; ok && cur == ch {
		delete(r.channels, session)
		metrics.Sessions.Dec()
	}
	r.mu.Unlock()

	if ch != nil && ch.close() {
		log.Debug("session channel closed", log.FieldSession(session))
	}
}

// Len is the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}
