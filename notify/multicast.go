package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/krisalay/sharecache/log"
	"github.com/krisalay/sharecache/metrics"
	"github.com/krisalay/sharecache/types"
)

const (
	// DefaultWindow is how often pending events are flushed to subscribers.
	DefaultWindow = time.Second

	// DefaultBufferSize is how many undelivered events a subscriber may hold.
	DefaultBufferSize = 256
)

/*
Multicast fans the event sequence of one cache out to any number of
subscribers.

  - Publish is called by a single writer (the Notifier worker) and never blocks:
    each subscriber has a bounded pending buffer, and when it is full the newest
    event is dropped for that subscriber only.
  - One ticker flushes every subscriber once per window; the events pending for a
    subscriber are delivered as one batch. Windows without events deliver nothing.
  - If a subscriber has not taken its previous batch yet, its pending events
    stay buffered and go out, merged, on a later flush. Order is preserved.
  - Subscribers see only events published after they attach.

Overflow buffers are per subscriber, not one shared buffer: bufferSize bounds
each subscriber's pending events separately, so a stalled reader only ever
loses its own newest events.
*/
type Multicast struct {
	name       string
	window     time.Duration
	bufferSize int
	metrics    types.Metrics

	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool

	dropped atomic.Int64

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewMulticast starts the flush loop. Non-positive window or bufferSize fall back to the defaults.
func NewMulticast(name string, window time.Duration, bufferSize int, m types.Metrics) *Multicast {
	if window <= 0 {
		window = DefaultWindow
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if m == nil {
		m = types.NoopMetrics{}
	}

	mc := &Multicast{
		name:       name,
		window:     window,
		bufferSize: bufferSize,
		metrics:    m,
		subs:       make(map[uint64]*Subscription),
		stop:       make(chan struct{}),
	}

	mc.wg.Add(1)
	go mc.loop()

	return mc
}

func (m *Multicast) loop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.flush()
		case <-m.stop:
			return
		}
	}
}

// Publish offers ev to every attached subscriber.
func (m *Multicast) Publish(ev types.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subs {
		if !sub.offer(ev, m.bufferSize) {
			m.dropped.Inc()
			m.metrics.Dropped()
			log.Debug("subscriber buffer full, event dropped",
				log.FieldCache(m.name),
				zap.String("type", string(ev.Type)),
				zap.String("id", ev.ID))
		}
	}
}

// flush hands each subscriber its pending events as one batch.
func (m *Multicast) flush() {
	m.mu.Lock()
	subs := make([]*Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	for _, sub := range subs {
		sub.flush()
	}
}

/*
Subscribe attaches a new subscriber. The subscription ends when ctx is done,
when Close is called on it, or when the Multicast is closed; in every case its
channel is closed.
*/
func (m *Multicast) Subscribe(ctx context.Context) *Subscription {
	sub := &Subscription{
		m:   m,
		out: make(chan []types.Event, 1),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		sub.closeOnce.Do(func() {
			sub.closed = true
			close(sub.out)
		})
		return sub
	}
	m.nextID++
	sub.id = m.nextID
	m.subs[sub.id] = sub
	m.mu.Unlock()

	metrics.Subscribers.WithLabelValues(m.name).Inc()

	if ctx != nil {
		stop := context.AfterFunc(ctx, sub.Close)
		sub.mu.Lock()
		sub.stopCtx = stop
		sub.mu.Unlock()
	}
	return sub
}

func (m *Multicast) remove(id uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subs[id]; !ok {
		return false
	}
	delete(m.subs, id)
	return true
}

// Len is the number of attached subscribers.
func (m *Multicast) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Dropped is the number of events discarded across all subscribers.
func (m *Multicast) Dropped() int64 {
	return m.dropped.Load()
}

// Close stops the flush loop, flushes once more and closes every subscription.
func (m *Multicast) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	close(m.stop)
	m.wg.Wait()

	m.flush()

	m.mu.Lock()
	subs := make([]*Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

// Subscription is one subscriber's view of a Multicast.
type Subscription struct {
	m       *Multicast
	id      uint64
	stopCtx func() bool

	mu      sync.Mutex
	pending []types.Event
	out     chan []types.Event
	closed  bool

	closeOnce sync.Once
}

// C delivers batches of events. It is closed when the subscription ends.
func (s *Subscription) C() <-chan []types.Event {
	return s.out
}

func (s *Subscription) offer(ev types.Event, limit int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return true
	}
	if len(s.pending) >= limit {
		return false
	}
	s.pending = append(s.pending, ev)
	return true
}

func (s *Subscription) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || len(s.pending) == 0 {
		return
	}
	select {
	case s.out <- s.pending:
		s.pending = nil
	default:
		// previous batch not consumed yet; keep accumulating
	}
}

// Close detaches the subscriber. It is safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		stop := s.stopCtx
		s.mu.Unlock()
		if stop != nil {
			stop()
		}
		if s.m.remove(s.id) {
			metrics.Subscribers.WithLabelValues(s.m.name).Dec()
		}

		s.mu.Lock()
		s.closed = true
		s.pending = nil
		close(s.out)
		s.mu.Unlock()
	})
}
