package jobs

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/krisalay/sharecache/conc"
	"github.com/krisalay/sharecache/log"
	"github.com/krisalay/sharecache/metrics"
	"github.com/krisalay/sharecache/types"
)

const (
	// DefaultDeliveryTimeout bounds how long a finished job waits for a slow reader.
	DefaultDeliveryTimeout = 30 * time.Second

	// DefaultJobTimeout bounds one recognition call.
	DefaultJobTimeout = 2 * time.Minute

	minReleaseWait = 100 * time.Millisecond
)

var (
	ErrNotConfigured = errors.New("text recognizer not configured")
	ErrNoText        = errors.New("recognizer returned no text")
	ErrShutdown      = errors.New("text recognition is shutting down")
)

var blankLines = regexp.MustCompile(`\n{2,}`)

// Supplier produces the job input. It runs on the worker, never on the dispatching call.
type Supplier func(ctx context.Context) ([]byte, error)

// Recognizer turns an image into text.
type Recognizer interface {
	Recognize(ctx context.Context, data []byte, contentType string) (string, error)
}

type Options struct {
	// Workers is the size of the shared pool. Zero means one per CPU.
	Workers int

	// DeliveryTimeout bounds how long a result waits for a full session channel.
	DeliveryTimeout time.Duration

	// JobTimeout bounds the supplier plus recognizer call.
	JobTimeout time.Duration
}

type job struct {
	session     string
	supplier    Supplier
	contentType string
}

/*
Dispatcher runs recognition jobs on a shared bounded pool and delivers each
job's single Result to its session's channel.

  - Dispatch never blocks: it appends to an in-memory FIFO. One feeder
    goroutine hands queued jobs to the pool, waiting for a free worker when all
    of them are busy, so a burst queues up instead of failing.
  - Every dispatched job produces exactly one Result, including when the
    supplier or recognizer panics and when Dispatch is called after Shutdown.
  - Results are routed by session id at delivery time. A session torn down
    while its job was running simply loses the result.
*/
type Dispatcher struct {
	*Registry

	pool            *conc.Pool[struct{}]
	recognizer      Recognizer
	deliveryTimeout time.Duration
	jobTimeout      time.Duration

	mu     sync.Mutex
	queue  []job
	closed bool

	signal chan struct{}
	stop   chan struct{}
	fed    chan struct{}
}

// NewDispatcher creates a dispatcher and starts its feeder. A nil recognizer is allowed; every job then fails with ErrNotConfigured.
func NewDispatcher(registry *Registry, recognizer Recognizer, opts Options) *Dispatcher {
	if registry == nil {
		registry = NewRegistry()
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = DefaultDeliveryTimeout
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = DefaultJobTimeout
	}

	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	// blocking: only the feeder ever waits on it
	pool := conc.NewPool[struct{}](opts.Workers)

	d := &Dispatcher{
		Registry:        registry,
		pool:            pool,
		recognizer:      recognizer,
		deliveryTimeout: opts.DeliveryTimeout,
		jobTimeout:      opts.JobTimeout,
		signal:          make(chan struct{}, 1),
		stop:            make(chan struct{}),
		fed:             make(chan struct{}),
	}
	go d.feed()
	return d
}

// Dispatch schedules one job for session and returns immediately.
func (d *Dispatcher) Dispatch(session string, supplier Supplier, contentType string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		log.Warn("dispatch after shutdown", log.FieldSession(session))
		go d.deliver(session, types.ErrorResult(ErrShutdown.Error()))
		return
	}
	d.queue = append(d.queue, job{session: session, supplier: supplier, contentType: contentType})
	d.mu.Unlock()

	select {
	case d.signal <- struct{}{}:
	default:
	}
}

// Queued is the number of dispatched jobs still waiting for a worker.
func (d *Dispatcher) Queued() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func (d *Dispatcher) feed() {
	defer close(d.fed)

	for {
		select {
		case <-d.signal:
			d.drain()
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// drain submits queued jobs in arrival order. Submit blocks while every worker is busy.
func (d *Dispatcher) drain() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		j := d.queue[0]
		d.queue[0] = job{}
		d.queue = d.queue[1:]
		d.mu.Unlock()

		future := d.pool.Submit(func() (struct{}, error) {
			d.deliver(j.session, d.execute(j))
			return struct{}{}, nil
		})
		select {
		case <-future.Inner():
			if err := future.Err(); err != nil {
				log.Warn("job not scheduled", log.FieldSession(j.session), zap.Error(err))
				go d.deliver(j.session, types.ErrorResult(ErrShutdown.Error()))
			}
		default:
		}
	}
}

// execute runs j and turns a panic into an ERROR Result.
func (d *Dispatcher) execute(j job) (r types.Result) {
	defer func() {
		if x := recover(); x != nil {
			log.Error("recognition job panicked",
				log.FieldSession(j.session),
				zap.Any("panic", x),
				zap.Stack("stack"))
			r = types.ErrorResult(fmt.Sprintf("recognition failed: %v", x))
		}
	}()
	return d.run(j.supplier, j.contentType)
}

// run executes one job and always produces exactly one Result.
func (d *Dispatcher) run(supplier Supplier, contentType string) types.Result {
	if d.recognizer == nil {
		return types.ErrorResult(ErrNotConfigured.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.jobTimeout)
	defer cancel()

	data, err := supplier(ctx)
	if err != nil {
		return types.ErrorResult(err.Error())
	}

	text, err := d.recognizer.Recognize(ctx, data, contentType)
	if err != nil {
		return types.ErrorResult(err.Error())
	}
	if strings.TrimSpace(text) == "" {
		return types.ErrorResult(ErrNoText.Error())
	}
	return types.SuccessResult(Normalize(text))
}

// Normalize collapses every run of two or more line breaks into one.
func Normalize(text string) string {
	return blankLines.ReplaceAllString(text, "\n")
}

// deliver pushes r to the session's channel, waiting at most deliveryTimeout for room.
func (d *Dispatcher) deliver(session string, r types.Result) {
	metrics.JobResults.WithLabelValues(string(r.Status)).Inc()

	ch, ok := d.Lookup(session)
	if !ok {
		log.Debug("no channel for session, result discarded", log.FieldSession(session))
		return
	}

	timer := time.NewTimer(d.deliveryTimeout)
	defer timer.Stop()

	select {
	case ch.results <- r:
	case <-ch.done:
		log.Debug("session closed, result discarded", log.FieldSession(session))
	case <-timer.C:
		log.Warn("session not reading, result discarded",
			log.FieldSession(session),
			zap.Duration("timeout", d.deliveryTimeout))
	}
}

/*
Shutdown stops accepting jobs, hands the queued ones to the pool and waits up
to timeout for them to finish before releasing the workers. Jobs dispatched
afterwards get an ERROR Result.
*/
func (d *Dispatcher) Shutdown(timeout time.Duration) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	deadline := time.Now().Add(timeout)
	close(d.stop)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-d.fed:
	case <-timer.C:
		log.Warn("job queue not drained before shutdown", zap.Int("queued", d.Queued()))
	}
	return d.pool.ReleaseTimeout(max(time.Until(deadline), minReleaseWait))
}
