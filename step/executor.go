package step

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/illuin-tech/data-pipeline-sub000/result"
	"github.com/illuin-tech/data-pipeline-sub000/run"
	"github.com/illuin-tech/data-pipeline-sub000/tag"
)

// Executor drives the step loop of a run.
//
// An Executor holds no per-run state and may be shared by concurrent runs.
type Executor struct {
	gen tag.Generator
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithGenerator sets the generator for component tag uids.
func WithGenerator(g tag.Generator) ExecutorOption {
	return func(x *Executor) {
		x.gen = g
	}
}

// NewExecutor creates an executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	x := &Executor{gen: tag.Default}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// loop is the state of one Run call.
type loop struct {
	out       *run.Output
	in        any
	rc        *run.Context
	discarded map[string]struct{}
}

// flow is what a step tells the outer loop.
type flow int

const (
	flowNext flow = iota
	flowStopAll
	flowExit
)

// Run executes steps over the entities indexed in out.
//
// The output is sealed before Run returns, on every path. An error means a
// step failed and no error handler recovered; results registered before the
// failure stay in the output.
func (x *Executor) Run(ctx context.Context, steps []*Descriptor, in any, out *run.Output, rc *run.Context) (Outcome, error) {
	defer out.Finish()

	l := &loop{
		out:       out,
		in:        in,
		rc:        rc,
		discarded: make(map[string]struct{}),
	}

	for _, s := range steps {
		producer := out.Tag().Component(x.gen.Generate(), s.ID, tag.FamilyStep)

		f, err := x.runStep(ctx, l, s, producer)
		if err != nil {
			return OutcomeContinue, err
		}

		switch f {
		case flowExit:
			slog.Info("pipeline exit requested",
				"pipeline", out.Tag().Pipeline,
				"run_id", out.Tag().RunID,
				"step_id", s.ID,
			)
			return OutcomeExit, nil
		case flowStopAll:
			slog.Info("step loop stopped",
				"pipeline", out.Tag().Pipeline,
				"run_id", out.Tag().RunID,
				"step_id", s.ID,
			)
			return OutcomeContinue, nil
		}
	}

	return OutcomeContinue, nil
}

// arguments snapshots the entities a step runs on.
func (l *loop) arguments(s *Descriptor) []result.Entity {
	var args []result.Entity
	for _, e := range l.out.Index().Entities() {
		if _, gone := l.discarded[e.UID()]; gone && !s.Pinned {
			continue
		}
		if !s.accepts(e, l.rc) {
			continue
		}
		args = append(args, e)
	}
	return args
}

func (x *Executor) runStep(ctx context.Context, l *loop, s *Descriptor, producer tag.ComponentTag) (flow, error) {
	args := l.arguments(s)
	call := s.wrapped()

	slog.Debug("executing step",
		"run_id", producer.Pipeline.RunID,
		"step_id", s.ID,
		"pinned", s.Pinned,
		"arguments", len(args),
	)

	for _, e := range args {
		if err := ctx.Err(); err != nil {
			return flowNext, &Error{StepID: s.ID, EntityUID: e.UID(), Tag: producer, Err: err}
		}

		a := Args{Entity: e, Input: l.in, Output: l.out, Context: l.rc}

		r, err := call(ctx, a)
		if err != nil {
			slog.Debug("step failed, running error handlers",
				"step_id", s.ID,
				"entity_uid", e.UID(),
				"handlers", len(s.ErrorHandlers),
				"error", err,
			)
			r, err = s.handle(ctx, err, a)
			if err != nil {
				return flowNext, &Error{StepID: s.ID, EntityUID: e.UID(), Tag: producer, Err: err}
			}
		}

		strategy := s.evaluate(r, a)
		slog.Debug("step result evaluated",
			"step_id", s.ID,
			"entity_uid", e.UID(),
			"strategy", strategy.String(),
		)

		if strategy.Has(RegisterResult) {
			if err := l.register(e.UID(), producer, r); err != nil {
				return flowNext, &Error{StepID: s.ID, EntityUID: e.UID(), Tag: producer, Err: err}
			}
		}
		if strategy.Has(ExitPipeline) {
			return flowExit, nil
		}
		if strategy.Has(DiscardCurrent) {
			l.discarded[e.UID()] = struct{}{}
		}
		if strategy.Has(DiscardAll) {
			for _, uid := range l.out.Index().UIDs() {
				l.discarded[uid] = struct{}{}
			}
		}
		if strategy.Has(StopAll) {
			return flowStopAll, nil
		}
		if strategy.Has(StopCurrent) {
			return flowNext, nil
		}
	}

	return flowNext, nil
}

// register stores r under uid. Multi-results are registered member by
// member; nested outputs have their current descriptors imported with
// their original producers.
func (l *loop) register(uid string, producer tag.ComponentTag, r result.Result) error {
	switch v := r.(type) {
	case nil:
		slog.Warn("nil step result not registered",
			"step_id", producer.ID,
			"entity_uid", uid,
		)
		return nil
	case *result.Multi:
		for i, member := range v.Results {
			if err := l.register(uid, producer, member); err != nil {
				return fmt.Errorf("register multi-result member %d: %w", i, err)
			}
		}
		return nil
	case *run.Nested:
		if v.Output == nil {
			return fmt.Errorf("nested result has no output")
		}
		if err := l.out.Import(v.Output.Container().Current()...); err != nil {
			return fmt.Errorf("import nested output %s: %w", v.Output.Tag().RunID, err)
		}
		return nil
	default:
		if _, err := l.out.Register(uid, producer, r); err != nil {
			return fmt.Errorf("register result: %w", err)
		}
		return nil
	}
}
