package step

import (
	"context"
	"errors"

	"github.com/illuin-tech/data-pipeline-sub000/result"
	"github.com/illuin-tech/data-pipeline-sub000/run"
)

// Args is what a step receives for one entity.
type Args struct {
	Entity  result.Entity
	Input   any
	Output  *run.Output
	Context *run.Context
}

// Results returns the global result view of the run.
func (a Args) Results() result.Results {
	return a.Output.Results()
}

// Self returns the result view scoped to the current entity.
func (a Args) Self() result.Results {
	return a.Output.Results().Of(a.Entity)
}

// Func is a step callable. It must be safe to call concurrently from
// independent runs.
//
// A Func returns an ordinary result, a *result.Multi, or a *run.Nested.
type Func func(ctx context.Context, a Args) (result.Result, error)

// Condition decides whether a step runs for an entity.
type Condition func(e result.Entity, rc *run.Context) bool

// Evaluator turns a result into the strategy applied by the executor.
type Evaluator func(r result.Result, a Args) Strategy

// ErrorHandler recovers from a step error by producing a substitute result,
// or fails by returning an error (which the next handler receives).
type ErrorHandler func(ctx context.Context, err error, a Args) (result.Result, error)

// Wrapper decorates a step callable (retry, time limit, logging, ...).
type Wrapper func(next Func) Func

// Descriptor declares one step of a pipeline.
//
// Descriptors are shared by every run of a pipeline and must stay
// immutable once the pipeline is built.
type Descriptor struct {
	ID string
	// Pinned steps ignore entity discarding.
	Pinned    bool
	Func      Func
	Condition Condition
	// Evaluator defaults to AlwaysContinue.
	Evaluator Evaluator
	// ErrorHandlers are tried in order; with none, errors abort the run.
	ErrorHandlers []ErrorHandler
	// Wrappers decorate Func; Wrappers[0] is the outermost.
	Wrappers []Wrapper
}

// Validate checks the descriptor is usable.
func (d *Descriptor) Validate() error {
	if d == nil {
		return errors.New("step descriptor is nil")
	}
	if d.ID == "" {
		return errors.New("step id is required")
	}
	if d.Func == nil {
		return errors.New("step " + d.ID + ": func is required")
	}
	return nil
}

func (d *Descriptor) accepts(e result.Entity, rc *run.Context) bool {
	return d.Condition == nil || d.Condition(e, rc)
}

func (d *Descriptor) wrapped() Func {
	fn := d.Func
	for i := len(d.Wrappers) - 1; i >= 0; i-- {
		fn = d.Wrappers[i](fn)
	}
	return fn
}

func (d *Descriptor) evaluate(r result.Result, a Args) Strategy {
	if d.Evaluator == nil {
		return Continue
	}
	return d.Evaluator(r, a)
}

// handle runs the error handler chain. Each handler sees the error left by
// the previous one; the last error is returned when all of them fail.
func (d *Descriptor) handle(ctx context.Context, err error, a Args) (result.Result, error) {
	for _, h := range d.ErrorHandlers {
		r, herr := h(ctx, err, a)
		if herr == nil {
			return r, nil
		}
		err = herr
	}
	return nil, err
}
