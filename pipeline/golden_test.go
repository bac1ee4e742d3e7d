package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/illuin-tech/data-pipeline-sub000/internal/testutil"
	"github.com/illuin-tech/data-pipeline-sub000/run"
	"github.com/illuin-tech/data-pipeline-sub000/step"
)

func indexDocs(_ context.Context, payload any, idx *run.Index) error {
	for _, d := range payload.([]*doc) {
		idx.Add(d)
	}
	return nil
}

// DiscardAll on "2" hides both entities from "3"; pinned "4" still sees
// them. The argument snapshot of "2" was taken before the discard, so "b"
// still runs "2".
func TestGolden_DiscardAllAndPin(t *testing.T) {
	p := mustNew(t, "discard",
		WithGenerator(testutil.NewSequenceGenerator("id")),
		WithClock(testutil.NewDeterministicClock()),
		WithIndexers(indexDocs),
		WithSteps(
			&step.Descriptor{ID: "1", Func: produce("1")},
			&step.Descriptor{ID: "2", Func: produce("2"), Evaluator: step.Always(step.DiscardAllAndContinue)},
			&step.Descriptor{ID: "3", Func: produce("3")},
			&step.Descriptor{ID: "4", Func: produce("4"), Pinned: true},
		),
	)

	out, err := p.Run(context.Background(), []*doc{{id: "a"}, {id: "b"}})
	require.NoError(t, err)

	testutil.AssertGolden(t, "discard_all_and_pin", out)
}

func TestGolden_NestedRun(t *testing.T) {
	clock := testutil.NewDeterministicClock()
	child := mustNew(t, "child",
		WithGenerator(testutil.NewSequenceGenerator("c")),
		WithClock(clock),
		WithSteps(&step.Descriptor{ID: "c1", Func: produce("c1")}),
	)
	parent := mustNew(t, "parent",
		WithGenerator(testutil.NewSequenceGenerator("p")),
		WithClock(clock),
		WithSteps(
			&step.Descriptor{ID: "1", Func: produce("1")},
			&step.Descriptor{ID: "nested", Func: AsStep(child)},
			&step.Descriptor{ID: "3", Func: produce("3")},
		),
	)

	out, err := parent.Run(context.Background(), &doc{id: "d"})
	require.NoError(t, err)

	testutil.AssertGolden(t, "nested_run", out)
}
