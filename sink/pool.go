package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrShutdownTimeout is returned by Close when tasks were still running
// once the timeout elapsed.
var ErrShutdownTimeout = errors.New("sink pool shutdown timed out")

// ErrTaskPanic wraps a panic recovered from an asynchronous sink.
var ErrTaskPanic = errors.New("async sink panicked")

// pool runs tasks on a fixed number of workers.
type pool struct {
	queue  *taskQueue
	group  errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
	size   int
	// panicked holds the recovered task panics once the workers exit.
	panicked error
}

func newPool(size int) *pool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &pool{
		queue:  newTaskQueue(),
		ctx:    ctx,
		cancel: cancel,
		size:   size,
	}
	for i := 0; i < size; i++ {
		p.group.Go(p.work)
	}
	slog.Debug("sink pool started", "workers", size)
	return p
}

func (p *pool) submit(t task) bool {
	return p.queue.Enqueue(t)
}

// work runs tasks until the queue is closed and empty. Panics recovered
// from tasks are returned together, so shutdown can report them.
func (p *pool) work() error {
	var panics []error
	for {
		if t, ok := p.queue.TryDequeue(); ok {
			if err := p.runTask(t); err != nil {
				panics = append(panics, err)
			}
			continue
		}
		if p.queue.Drained() {
			return errors.Join(panics...)
		}
		<-p.queue.Wait()
	}
}

func (p *pool) runTask(t task) (err error) {
	if p.ctx.Err() != nil {
		slog.Warn("sink pool stopped, dropping queued task")
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("async sink panicked", "panic", fmt.Sprint(r))
			err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
	}()
	t(p.ctx)
	return nil
}

// shutdown stops accepting tasks and waits up to timeout for the queue to
// drain. On timeout the task context is cancelled, queued tasks are
// dropped, and ErrShutdownTimeout is returned.
func (p *pool) shutdown(timeout time.Duration) (bool, error) {
	p.queue.Close()

	done := make(chan struct{})
	go func() {
		if err := p.group.Wait(); err != nil {
			p.panicked = err
			slog.Warn("sink pool recovered panics", "error", err)
		}
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		p.cancel()
		return true, nil
	case <-timer.C:
		p.cancel()
		slog.Warn("sink pool shutdown forced",
			"timeout", timeout,
			"queued", p.queue.Len(),
		)
		return false, fmt.Errorf("%w after %s", ErrShutdownTimeout, timeout)
	}
}
