package pool

import (
	"errors"
	"fmt"
	"sync"
)

// Error values returned by pool operations
var (
	// ErrPoolClosed is returned by Submit once Shutdown has begun
	ErrPoolClosed = errors.New("pool is shut down")

	// ErrNilTask is returned by Submit when the task function is nil
	ErrNilTask = errors.New("task must not be nil")
)

// Pool executes submitted tasks on a fixed set of worker goroutines.
// Tasks are queued FIFO and may complete in any order relative to
// submission; the future returned at submission time is always the handle
// for that specific task.
type Pool[R any] struct {
	workers int

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []item[R]
	closed bool

	wg           sync.WaitGroup
	shutdownOnce sync.Once

	// Statistics (guarded by mu)
	tasksSubmitted uint64
	tasksCompleted uint64
	tasksPanicked  uint64
}

// item pairs a queued task with the future bound to its result
type item[R any] struct {
	task   func() (R, error)
	future *Future[R]
}

// Stats represents a snapshot of pool statistics
type Stats struct {
	Workers        int    `json:"workers"`
	QueueDepth     int    `json:"queue_depth"`
	TasksSubmitted uint64 `json:"tasks_submitted"`
	TasksCompleted uint64 `json:"tasks_completed"`
	TasksPanicked  uint64 `json:"tasks_panicked"`
}

// New creates a pool running the given number of worker goroutines.
// A worker count below one is rejected rather than clamped.
func New[R any](workers int) (*Pool[R], error) {
	if workers < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", workers)
	}

	p := &Pool[R]{workers: workers}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.workerLoop()
	}

	return p, nil
}

// Submit enqueues a task for execution by any available worker and returns
// the future bound to its eventual result. Submit never blocks waiting for
// execution: the queue is unbounded. After Shutdown has begun it returns
// ErrPoolClosed.
func (p *Pool[R]) Submit(task func() (R, error)) (*Future[R], error) {
	if task == nil {
		return nil, ErrNilTask
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}

	f := newFuture[R]()
	p.queue = append(p.queue, item[R]{task: task, future: f})
	p.tasksSubmitted++
	p.mu.Unlock()

	// Wake one idle worker for the new task
	p.cond.Signal()

	return f, nil
}

// Shutdown stops accepting new work, lets all already-queued tasks run to
// completion (drain policy: queued work is never dropped), and joins the
// worker goroutines. It is safe to call more than once; repeated calls
// wait for the same drain.
func (p *Pool[R]) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		// Wake every idle worker so each can observe the closed flag
		p.cond.Broadcast()
	})
	p.wg.Wait()
}

// GetStats returns a snapshot of the current pool statistics
func (p *Pool[R]) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		Workers:        p.workers,
		QueueDepth:     len(p.queue),
		TasksSubmitted: p.tasksSubmitted,
		TasksCompleted: p.tasksCompleted,
		TasksPanicked:  p.tasksPanicked,
	}
}

// workerLoop is the main loop of one worker goroutine. It blocks while the
// queue is empty, pops tasks FIFO, and exits only once the pool is closed
// and the queue has been drained.
func (p *Pool[R]) workerLoop() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}

		if len(p.queue) == 0 {
			// Closed and drained
			p.mu.Unlock()
			return
		}

		it := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.runTask(it)
	}
}

// runTask executes one task and fulfills its future. A panic inside the
// task is captured and delivered through the future as an error so a
// failing task cannot take down the worker or affect other tasks.
func (p *Pool[R]) runTask(it item[R]) {
	defer func() {
		if r := recover(); r != nil {
			p.mu.Lock()
			p.tasksPanicked++
			p.tasksCompleted++
			p.mu.Unlock()

			var zero R
			it.future.fulfill(zero, fmt.Errorf("task panicked: %v", r))
		}
	}()

	value, err := it.task()

	p.mu.Lock()
	p.tasksCompleted++
	p.mu.Unlock()

	it.future.fulfill(value, err)
}
