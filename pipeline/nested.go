package pipeline

import (
	"context"

	"github.com/illuin-tech/data-pipeline-sub000/result"
	"github.com/illuin-tech/data-pipeline-sub000/run"
	"github.com/illuin-tech/data-pipeline-sub000/step"
)

// AsStep exposes p as a step function.
//
// For each argument, p runs with the argument entity as input and the
// enclosing output as parent, so p sees the enclosing run's results. The
// step returns a *run.Nested; registering it imports every result p
// produced into the enclosing output, with p's producer tags.
//
// A failed nested run fails the step with the nested *Error.
func AsStep(p *Pipeline) step.Func {
	return func(ctx context.Context, a step.Args) (result.Result, error) {
		out, err := p.RunWith(ctx, a.Entity, a.Context.WithParent(a.Output))
		if err != nil {
			return nil, err
		}
		return run.NewNested(out), nil
	}
}
