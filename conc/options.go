package conc

import (
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/krisalay/sharecache/log"
)

type poolOption struct {
	// pre-allocs workers
	preAlloc bool
	// block or not when pool is full
	nonBlocking bool
	// the max number of goroutines are blocking
	maxBlockingTasks int
	// the idle worker expiry
	expiryDuration time.Duration
	// recovers panics of tasks
	panicHandler func(any)
}

func (opt *poolOption) antsOptions() []ants.Option {
	var result []ants.Option
	result = append(result, ants.WithPreAlloc(opt.preAlloc))
	result = append(result, ants.WithNonblocking(opt.nonBlocking))
	result = append(result, ants.WithMaxBlockingTasks(opt.maxBlockingTasks))
	if opt.expiryDuration > 0 {
		result = append(result, ants.WithExpiryDuration(opt.expiryDuration))
	}
	if opt.panicHandler != nil {
		result = append(result, ants.WithPanicHandler(opt.panicHandler))
	}
	return result
}

func defaultPoolOption() *poolOption {
	return &poolOption{
		panicHandler: func(x any) {
			log.Error("task panicked", zap.Any("panic", x), zap.Stack("stack"))
		},
	}
}

type PoolOption func(opt *poolOption)

func WithPreAlloc(v bool) PoolOption {
	return func(opt *poolOption) {
		opt.preAlloc = v
	}
}

// WithNonBlocking makes Submit fail with ants.ErrPoolOverload instead of waiting for a free worker.
func WithNonBlocking(v bool) PoolOption {
	return func(opt *poolOption) {
		opt.nonBlocking = v
	}
}

func WithMaxBlockingTasks(n int) PoolOption {
	return func(opt *poolOption) {
		opt.maxBlockingTasks = n
	}
}

func WithExpiryDuration(d time.Duration) PoolOption {
	return func(opt *poolOption) {
		opt.expiryDuration = d
	}
}

func WithPanicHandler(fn func(any)) PoolOption {
	return func(opt *poolOption) {
		opt.panicHandler = fn
	}
}
