package conc

import (
	"fmt"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
)

// ErrPoolOverload is returned by a non-blocking pool with no idle worker.
var ErrPoolOverload = ants.ErrPoolOverload

// A goroutine pool
type Pool[T any] struct {
	inner *ants.Pool
	opt   *poolOption
}

// NewPool returns a goroutine pool.
// cap: the number of workers.
// This panic if provide any invalid option.
func NewPool[T any](cap int, opts ...PoolOption) *Pool[T] {
	opt := defaultPoolOption()
	for _, o := range opts {
		o(opt)
	}

	pool, err := ants.NewPool(cap, opt.antsOptions()...)
	if err != nil {
		panic(err)
	}

	return &Pool[T]{
		inner: pool,
		opt:   opt,
	}
}

// NewDefaultPool returns a pool with cap of the number of logical CPU.
func NewDefaultPool[T any]() *Pool[T] {
	return NewPool[T](runtime.NumCPU())
}

// Submit a task into the pool,
// executes it asynchronously.
// This will block if the pool has finite workers and no idle worker,
// unless the pool was created WithNonBlocking, in which case the future
// completes at once with ErrPoolOverload.
func (pool *Pool[T]) Submit(method func() (T, error)) *Future[T] {
	future := newFuture[T]()
	err := pool.inner.Submit(func() {
		defer close(future.ch)
		defer func() {
			if x := recover(); x != nil {
				future.err = fmt.Errorf("panicked with error: %v", x)
				panic(x) // throw panic out
			}
		}()
		res, err := method()
		if err != nil {
			future.err = err
		}
		future.value = res
	})
	if err != nil {
		future.err = errors.Wrap(err, "submit task")
		close(future.ch)
	}

	return future
}

// The number of workers
func (pool *Pool[T]) Cap() int {
	return pool.inner.Cap()
}

// The number of running workers
func (pool *Pool[T]) Running() int {
	return pool.inner.Running()
}

// Free returns the number of free workers
func (pool *Pool[T]) Free() int {
	return pool.inner.Free()
}

func (pool *Pool[T]) IsClosed() bool {
	return pool.inner.IsClosed()
}

func (pool *Pool[T]) Release() {
	pool.inner.Release()
}

// ReleaseTimeout waits up to timeout for running tasks before releasing the workers.
func (pool *Pool[T]) ReleaseTimeout(timeout time.Duration) error {
	return pool.inner.ReleaseTimeout(timeout)
}
