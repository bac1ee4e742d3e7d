package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/illuin-tech/data-pipeline-sub000/result"
	"github.com/illuin-tech/data-pipeline-sub000/run"
	"github.com/illuin-tech/data-pipeline-sub000/sink"
	"github.com/illuin-tech/data-pipeline-sub000/step"
	"github.com/illuin-tech/data-pipeline-sub000/tag"
)

// Run executes one run of the pipeline over in with an empty context.
func (p *Pipeline) Run(ctx context.Context, in any) (*run.Output, error) {
	return p.RunWith(ctx, in, run.NewContext())
}

// RunWith executes one run of the pipeline over in.
//
// When rc carries a parent output the run's container inherits the
// parent's full history: those results are visible to Latest queries but
// never Current.
//
// The returned output is always non-nil and sealed. On failure the error is
// an *Error wrapping the cause and pointing at the same output. A run whose
// steps request an exit returns without error and without running sinks.
func (p *Pipeline) RunWith(ctx context.Context, in any, rc *run.Context) (*run.Output, error) {
	if rc == nil {
		rc = run.NewContext()
	}

	pt := tag.PipelineTag{
		RunID:    p.gen.Generate(),
		Pipeline: p.id,
		Author:   p.resolveAuthor(in, rc),
	}

	copts := []result.ContainerOption{
		result.WithClock(p.clock),
		result.WithGenerator(p.gen),
	}
	if parent, ok := rc.Parent(); ok {
		copts = append(copts, result.WithInherited(parent.Container()))
	}
	container := result.NewContainer(copts...)

	slog.Debug("run started",
		"pipeline", p.id,
		"run_id", pt.RunID,
		"author", pt.Author,
		"nested", container.Len() > 0,
	)

	payload, err := p.initialize(ctx, in, rc)
	if err != nil {
		out := run.NewOutput(pt, nil, nil, container)
		out.Finish()
		return out, p.fail(ctx, &Error{
			Tag:       pt,
			Phase:     PhaseInitialization,
			Component: pt.Component(p.gen.Generate(), "initializer", tag.FamilyInitializer),
			Output:    out,
			Context:   rc,
			Err:       err,
		})
	}

	out := run.NewOutput(pt, payload, run.NewIndex(), container)

	if err := p.index(ctx, out); err != nil {
		out.Finish()
		return out, p.fail(ctx, err.withRun(p.gen.Generate(), pt, out, rc))
	}

	outcome, err := p.executor.Run(ctx, p.steps, in, out, rc)
	if err != nil {
		perr := &Error{Tag: pt, Phase: PhaseSteps, Output: out, Context: rc, Err: err}
		if se, ok := step.AsError(err); ok {
			perr.Component = se.Tag
		}
		return out, p.fail(ctx, perr)
	}
	if outcome == step.OutcomeExit {
		slog.Debug("run exited, sinks skipped",
			"pipeline", p.id,
			"run_id", pt.RunID,
		)
		return out, nil
	}

	if err := p.dispatcher.Run(ctx, p.sinks, out, rc); err != nil {
		perr := &Error{Tag: pt, Phase: PhaseSinks, Output: out, Context: rc, Err: err}
		var se *sink.Error
		if errors.As(err, &se) {
			perr.Component = se.Tag
		}
		return out, p.fail(ctx, perr)
	}

	slog.Debug("run finished",
		"pipeline", p.id,
		"run_id", pt.RunID,
		"results", container.Len(),
	)
	return out, nil
}

func (p *Pipeline) resolveAuthor(in any, rc *run.Context) string {
	if a := p.author(in, rc); a != "" {
		return a
	}
	return tag.AnonymousAuthor
}

func (p *Pipeline) initialize(ctx context.Context, in any, rc *run.Context) (any, error) {
	if p.initializer == nil {
		return in, nil
	}

	payload, err := p.initializer(ctx, in, rc)
	if err == nil {
		return payload, nil
	}
	for _, h := range p.initHandlers {
		sub, herr := h(ctx, err, in, rc)
		if herr == nil {
			slog.Debug("initializer failure recovered", "pipeline", p.id, "error", err)
			return sub, nil
		}
		err = herr
	}
	return nil, err
}

// indexError is an indexing failure before the run tag is attached.
type indexError struct {
	position int
	err      error
}

func (e *indexError) withRun(uid string, pt tag.PipelineTag, out *run.Output, rc *run.Context) *Error {
	return &Error{
		Tag:       pt,
		Phase:     PhaseIndexing,
		Component: pt.Component(uid, fmt.Sprintf("indexer-%d", e.position), tag.FamilyIndexer),
		Output:    out,
		Context:   rc,
		Err:       e.err,
	}
}

func (p *Pipeline) index(ctx context.Context, out *run.Output) *indexError {
	if len(p.indexers) == 0 {
		if e, ok := out.Payload().(result.Entity); ok {
			out.Index().Add(e)
		}
		return nil
	}
	for i, ix := range p.indexers {
		if err := ctx.Err(); err != nil {
			return &indexError{position: i, err: err}
		}
		if err := ix(ctx, out.Payload(), out.Index()); err != nil {
			return &indexError{position: i, err: err}
		}
	}
	return nil
}

func (p *Pipeline) fail(ctx context.Context, err *Error) error {
	slog.Error("run failed",
		"pipeline", err.Tag.Pipeline,
		"run_id", err.Tag.RunID,
		"phase", string(err.Phase),
		"component", err.Component.ID,
		"error", err.Err,
	)
	for _, h := range p.onFailure {
		h(ctx, err)
	}
	return err
}
