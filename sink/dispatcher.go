package sink

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/illuin-tech/data-pipeline-sub000/run"
	"github.com/illuin-tech/data-pipeline-sub000/tag"
)

// ErrClosed is returned when an asynchronous sink is dispatched after Close.
var ErrClosed = errors.New("sink dispatcher is closed")

// DefaultPoolSize returns the available parallelism.
func DefaultPoolSize() int {
	return runtime.GOMAXPROCS(0)
}

// Dispatcher executes sinks against sealed run outputs.
//
// One Dispatcher serves every run of a pipeline and owns the worker pool
// used by asynchronous sinks.
//
// Thread-safety: Run may be called concurrently; Close must only be called
// once no run can still submit work.
type Dispatcher struct {
	poolSize func() int
	gen      tag.Generator

	mu     sync.Mutex
	pool   *pool
	closed bool

	closeOnce sync.Once
	graceful  bool
	closeErr  error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPoolSize sets the provider consulted when the pool is created.
func WithPoolSize(size func() int) Option {
	return func(d *Dispatcher) {
		d.poolSize = size
	}
}

// WithGenerator sets the generator for component tag uids.
func WithGenerator(g tag.Generator) Option {
	return func(d *Dispatcher) {
		d.gen = g
	}
}

// NewDispatcher creates a dispatcher. No worker is started until the first
// asynchronous sink is dispatched.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		poolSize: DefaultPoolSize,
		gen:      tag.Default,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes sinks in declaration order. It returns the first
// synchronous failure that no handler recovered; asynchronous sinks never
// make Run fail, except when the dispatcher is already closed.
func (d *Dispatcher) Run(ctx context.Context, sinks []*Descriptor, out *run.Output, rc *run.Context) error {
	for _, s := range sinks {
		producer := out.Tag().Component(d.gen.Generate(), s.ID, tag.FamilySink)

		if s.Async {
			if err := d.submit(s, producer, out, rc); err != nil {
				return &Error{SinkID: s.ID, Tag: producer, Err: err}
			}
			continue
		}

		slog.Debug("executing sink",
			"run_id", out.Tag().RunID,
			"sink_id", s.ID,
		)
		if err := s.execute(ctx, out, rc); err != nil {
			return &Error{SinkID: s.ID, Tag: producer, Err: err}
		}
	}
	return nil
}

func (d *Dispatcher) submit(s *Descriptor, producer tag.ComponentTag, out *run.Output, rc *run.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.pool == nil {
		d.pool = newPool(d.poolSize())
	}

	ok := d.pool.submit(func(ctx context.Context) {
		if err := s.execute(ctx, out, rc); err != nil {
			slog.Error("async sink failed",
				"pipeline", out.Tag().Pipeline,
				"run_id", out.Tag().RunID,
				"sink_id", s.ID,
				"component_uid", producer.UID,
				"error", err,
			)
		}
	})
	if !ok {
		return ErrClosed
	}
	slog.Debug("async sink submitted",
		"run_id", out.Tag().RunID,
		"sink_id", s.ID,
	)
	return nil
}

// PoolStarted reports whether the worker pool has been created.
func (d *Dispatcher) PoolStarted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pool != nil
}

// Close shuts the worker pool down, waiting up to timeout for queued and
// running tasks. It reports whether the shutdown was graceful.
//
// Close is idempotent: later calls return the first call's outcome. When
// no asynchronous sink was ever dispatched it is a no-op returning true.
func (d *Dispatcher) Close(timeout time.Duration) (bool, error) {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		p := d.pool
		d.mu.Unlock()

		if p == nil {
			d.graceful = true
			return
		}
		d.graceful, d.closeErr = p.shutdown(timeout)
		slog.Info("sink dispatcher closed", "graceful", d.graceful)
	})
	return d.graceful, d.closeErr
}
