package notify

import (
	"sync"

	"github.com/krisalay/sharecache/types"
)

// Publisher receives events from the Notifier worker, one at a time, in submission order.
type Publisher interface {
	Publish(types.Event)
}

/*
Notifier decouples event production from event delivery.

Producers (cache calls, the eviction hook running under a shard lock, the
janitor) call Submit, which only appends to an in-memory queue and never
waits. One background worker drains the queue in arrival order and hands each
event to the Publisher, so the Publisher sees a single total order per cache
even though producers run concurrently.

The queue is unbounded: Submit must stay safe to call while a shard lock is
held. Loss, if any, happens later in the Multicast, never here.
*/
type Notifier struct {
	sink Publisher

	mu     sync.Mutex
	queue  []types.Event
	closed bool

	// signal wakes the worker. Capacity 1: one pending wake-up covers any number of submits.
	signal chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewNotifier starts the worker goroutine.
func NewNotifier(sink Publisher) *Notifier {
	n := &Notifier{
		sink:   sink,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	n.wg.Add(1)
	go n.worker()

	return n
}

// Submit enqueues ev. It returns false only after Close.
func (n *Notifier) Submit(ev types.Event) bool {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return false
	}
	n.queue = append(n.queue, ev)
	n.mu.Unlock()

	select {
	case n.signal <- struct{}{}:
	default:
	}
	return true
}

// Pending is the number of submitted events not yet handed to the Publisher.
func (n *Notifier) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.queue)
}

func (n *Notifier) worker() {
	defer n.wg.Done()

	for {
		select {
		case <-n.signal:
			n.drain()
		case <-n.done:
			n.drain()
			return
		}
	}
}

// drain swaps the queue out under the lock and publishes outside it.
func (n *Notifier) drain() {
	for {
		n.mu.Lock()
		batch := n.queue
		n.queue = nil
		n.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, ev := range batch {
			n.sink.Publish(ev)
		}
	}
}

/*
Close stops accepting events, publishes whatever is still queued and waits
for the worker to exit.
*/
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}
