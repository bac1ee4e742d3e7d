package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/illuin-tech/data-pipeline-sub000/run"
	"github.com/illuin-tech/data-pipeline-sub000/tag"
)

// Func is a sink callable. It reads the sealed output and must not
// register results.
type Func func(ctx context.Context, out *run.Output, rc *run.Context) error

// ErrorHandler recovers from a sink error by returning nil, or passes an
// error on to the next handler.
type ErrorHandler func(ctx context.Context, err error, out *run.Output, rc *run.Context) error

// Wrapper decorates a sink callable.
type Wrapper func(next Func) Func

// Descriptor declares one sink of a pipeline.
type Descriptor struct {
	ID string
	// Async sinks run on the worker pool without blocking the run.
	Async bool
	Func  Func
	// ErrorHandlers are tried in order; each sees the previous error.
	ErrorHandlers []ErrorHandler
	// Wrappers decorate Func; Wrappers[0] is the outermost.
	Wrappers []Wrapper
}

// Validate checks the descriptor is usable.
func (d *Descriptor) Validate() error {
	if d == nil {
		return errors.New("sink descriptor is nil")
	}
	if d.ID == "" {
		return errors.New("sink id is required")
	}
	if d.Func == nil {
		return fmt.Errorf("sink %s: func is required", d.ID)
	}
	return nil
}

func (d *Descriptor) wrapped() Func {
	fn := d.Func
	for i := len(d.Wrappers) - 1; i >= 0; i-- {
		fn = d.Wrappers[i](fn)
	}
	return fn
}

// execute runs the sink and its error handlers. A nil return means the
// sink succeeded or was recovered.
func (d *Descriptor) execute(ctx context.Context, out *run.Output, rc *run.Context) error {
	err := d.wrapped()(ctx, out, rc)
	if err == nil {
		return nil
	}
	for _, h := range d.ErrorHandlers {
		herr := h(ctx, err, out, rc)
		if herr == nil {
			return nil
		}
		err = herr
	}
	return err
}

// Ignore is an error handler that swallows every error.
func Ignore(context.Context, error, *run.Output, *run.Context) error {
	return nil
}

// Rethrow passes the error on unchanged.
func Rethrow(_ context.Context, err error, _ *run.Output, _ *run.Context) error {
	return err
}

// Error is a sink failure that no error handler recovered from.
type Error struct {
	SinkID string
	Tag    tag.ComponentTag
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("sink %s failed: %v", e.SinkID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
