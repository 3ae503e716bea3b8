package conc

// Future is the result of a task submitted to a Pool.
type Future[T any] struct {
	ch    chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{
		ch: make(chan struct{}),
	}
}

// Inner returns the channel that is closed once the task is done.
func (future *Future[T]) Inner() <-chan struct{} {
	return future.ch
}

// Await blocks until the task finishes and returns its value and error.
func (future *Future[T]) Await() (T, error) {
	<-future.ch
	return future.value, future.err
}

func (future *Future[T]) Value() T {
	<-future.ch
	return future.value
}

func (future *Future[T]) Err() error {
	<-future.ch
	return future.err
}

// OK reports whether the task finished without error.
func (future *Future[T]) OK() bool {
	<-future.ch
	return future.err == nil
}
