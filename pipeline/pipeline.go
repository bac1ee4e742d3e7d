package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/illuin-tech/data-pipeline-sub000/result"
	"github.com/illuin-tech/data-pipeline-sub000/run"
	"github.com/illuin-tech/data-pipeline-sub000/sink"
	"github.com/illuin-tech/data-pipeline-sub000/step"
	"github.com/illuin-tech/data-pipeline-sub000/tag"
)

// DefaultCloseTimeout bounds how long Close waits for asynchronous sinks.
const DefaultCloseTimeout = 30 * time.Second

// Initializer turns the run input into the payload the run operates on.
type Initializer func(ctx context.Context, in any, rc *run.Context) (any, error)

// InitializerErrorHandler recovers from an initializer failure by
// returning a substitute payload.
type InitializerErrorHandler func(ctx context.Context, err error, in any, rc *run.Context) (any, error)

// Indexer adds the entities found in payload to idx.
type Indexer func(ctx context.Context, payload any, idx *run.Index) error

// AuthorResolver names the author of a run. An empty name means
// tag.AnonymousAuthor.
type AuthorResolver func(in any, rc *run.Context) string

// FailureHook observes failed runs. It runs on the caller's goroutine
// before Run returns.
type FailureHook func(ctx context.Context, err *Error)

// Pipeline is a named, validated sequence of steps and sinks.
//
// Thread-safety: Run may be called from any number of goroutines.
// Components must be safe for concurrent use accordingly.
type Pipeline struct {
	id           string
	initializer  Initializer
	initHandlers []InitializerErrorHandler
	indexers     []Indexer
	steps        []*step.Descriptor
	sinks        []*sink.Descriptor
	author       AuthorResolver
	onFailure    []FailureHook

	gen          tag.Generator
	clock        result.Clock
	poolSize     func() int
	closeTimeout time.Duration

	executor   *step.Executor
	dispatcher *sink.Dispatcher
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithInitializer sets the initializer. Without one the input is the payload.
func WithInitializer(fn Initializer) Option {
	return func(p *Pipeline) {
		p.initializer = fn
	}
}

// WithInitializerErrorHandler appends an initializer error handler.
// Handlers are tried in order; each sees the previous error.
func WithInitializerErrorHandler(h InitializerErrorHandler) Option {
	return func(p *Pipeline) {
		p.initHandlers = append(p.initHandlers, h)
	}
}

// WithIndexers appends indexers. Without any, the payload itself is
// indexed when it is a result.Entity.
func WithIndexers(indexers ...Indexer) Option {
	return func(p *Pipeline) {
		p.indexers = append(p.indexers, indexers...)
	}
}

// WithSteps appends steps in execution order.
func WithSteps(steps ...*step.Descriptor) Option {
	return func(p *Pipeline) {
		p.steps = append(p.steps, steps...)
	}
}

// WithSinks appends sinks in dispatch order.
func WithSinks(sinks ...*sink.Descriptor) Option {
	return func(p *Pipeline) {
		p.sinks = append(p.sinks, sinks...)
	}
}

// WithAuthorResolver sets how run authors are named.
func WithAuthorResolver(fn AuthorResolver) Option {
	return func(p *Pipeline) {
		p.author = fn
	}
}

// WithGenerator sets the generator for run ids, component uids and
// descriptor uids.
func WithGenerator(g tag.Generator) Option {
	return func(p *Pipeline) {
		p.gen = g
	}
}

// WithClock sets the clock of run containers. Pipelines nested with AsStep
// must share a clock with their parent.
func WithClock(c result.Clock) Option {
	return func(p *Pipeline) {
		p.clock = c
	}
}

// WithPoolSize sets the worker count provider of the asynchronous sink
// pool. It is consulted once, when the pool is first needed.
func WithPoolSize(size func() int) Option {
	return func(p *Pipeline) {
		p.poolSize = size
	}
}

// WithCloseTimeout sets how long Close waits for asynchronous sinks.
func WithCloseTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.closeTimeout = d
	}
}

// WithOnFailure appends a hook called for every failed run.
func WithOnFailure(h FailureHook) Option {
	return func(p *Pipeline) {
		p.onFailure = append(p.onFailure, h)
	}
}

// New builds a pipeline.
//
// Steps and sinks are validated and their ids must be unique within their
// kind. The slices are copied so later changes by the caller have no effect.
func New(id string, opts ...Option) (*Pipeline, error) {
	if id == "" {
		return nil, errors.New("pipeline id is required")
	}

	p := &Pipeline{
		id:           id,
		author:       anonymous,
		gen:          tag.Default,
		clock:        result.DefaultClock,
		poolSize:     sink.DefaultPoolSize,
		closeTimeout: DefaultCloseTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", id, err)
	}

	p.steps = append([]*step.Descriptor(nil), p.steps...)
	p.sinks = append([]*sink.Descriptor(nil), p.sinks...)
	p.executor = step.NewExecutor(step.WithGenerator(p.gen))
	p.dispatcher = sink.NewDispatcher(
		sink.WithPoolSize(p.poolSize),
		sink.WithGenerator(p.gen),
	)
	return p, nil
}

func (p *Pipeline) validate() error {
	if p.gen == nil {
		return errors.New("generator is nil")
	}
	if p.clock == nil {
		return errors.New("clock is nil")
	}
	if p.author == nil {
		p.author = anonymous
	}

	stepIDs := make(map[string]struct{}, len(p.steps))
	for i, s := range p.steps {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		if _, dup := stepIDs[s.ID]; dup {
			return fmt.Errorf("duplicate step id %q", s.ID)
		}
		stepIDs[s.ID] = struct{}{}
	}

	sinkIDs := make(map[string]struct{}, len(p.sinks))
	for i, s := range p.sinks {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
		if _, dup := sinkIDs[s.ID]; dup {
			return fmt.Errorf("duplicate sink id %q", s.ID)
		}
		sinkIDs[s.ID] = struct{}{}
	}
	return nil
}

func anonymous(any, *run.Context) string {
	return tag.AnonymousAuthor
}

// ID returns the pipeline id.
func (p *Pipeline) ID() string {
	return p.id
}

// Steps returns the step ids in execution order.
func (p *Pipeline) Steps() []string {
	ids := make([]string, len(p.steps))
	for i, s := range p.steps {
		ids[i] = s.ID
	}
	return ids
}

// Sinks returns the sink ids in dispatch order.
func (p *Pipeline) Sinks() []string {
	ids := make([]string, len(p.sinks))
	for i, s := range p.sinks {
		ids[i] = s.ID
	}
	return ids
}

// Close shuts the asynchronous sink pool down, waiting up to the close
// timeout. It reports whether every task finished in time.
//
// Close is idempotent. Runs dispatching asynchronous sinks after Close
// fail in the sinks phase with sink.ErrClosed.
func (p *Pipeline) Close() (bool, error) {
	return p.dispatcher.Close(p.closeTimeout)
}
