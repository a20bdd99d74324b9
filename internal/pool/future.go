package pool

import (
	"context"
	"sync"
)

// Future is a one-shot, single-consumer handle to the eventual result of a
// submitted task. Exactly one producer (the worker that ran the task)
// fulfills it exactly once; the consumer reads it through Wait or Done.
type Future[R any] struct {
	done  chan struct{}
	once  sync.Once
	value R
	err   error
}

func newFuture[R any]() *Future[R] {
	return &Future[R]{done: make(chan struct{})}
}

// fulfill stores the task outcome and wakes all waiters. Calling it more
// than once is a no-op, which keeps the single-producer invariant even when
// a task both returns and panics during unwinding.
func (f *Future[R]) fulfill(value R, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Done returns a channel that is closed once the task has completed.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task has completed and returns its result and
// any error raised during execution.
func (f *Future[R]) Wait() (R, error) {
	<-f.done
	return f.value, f.err
}

// WaitContext behaves like Wait but gives up when the context is cancelled.
// The task itself keeps running; only the wait is abandoned.
func (f *Future[R]) WaitContext(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}
