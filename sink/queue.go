package sink

import (
	"context"
	"sync"
)

// task is one asynchronous sink execution.
type task func(ctx context.Context)

// taskQueue is an unbounded FIFO of tasks shared by the pool workers.
//
// Submission never blocks, so a run is never slowed down by busy workers.
// The signal channel (buffered, size 1) wakes waiting workers; it is closed
// by Close, which wakes every worker at once.
type taskQueue struct {
	mu     sync.Mutex
	tasks  []task
	closed bool
	signal chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		tasks:  make([]task, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a task. Returns false if the queue is closed.
func (q *taskQueue) Enqueue(t task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, t)
	q.notifyLocked()
	return true
}

// TryDequeue removes the front task without blocking.
func (q *taskQueue) TryDequeue() (task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil, false
	}

	t := q.tasks[0]
	// Nil out the slot so the closure can be collected.
	q.tasks[0] = nil
	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
		// Signals coalesce; pass one on so another worker picks up the rest.
		q.notifyLocked()
	}
	return t, true
}

func (q *taskQueue) notifyLocked() {
	if q.closed {
		return
	}
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Wait returns a channel that fires when tasks may be available.
func (q *taskQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued tasks.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Drained reports whether the queue is closed and empty.
func (q *taskQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.tasks) == 0
}

// Close refuses further tasks and wakes every waiting worker.
func (q *taskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
