package result_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illuin-tech/data-pipeline-sub000/internal/testutil"
	"github.com/illuin-tech/data-pipeline-sub000/result"
	"github.com/illuin-tech/data-pipeline-sub000/tag"
)

type note struct {
	result.Base
	Text string
}

type score struct {
	result.Base
	Value int
}

type entity string

func (e entity) UID() string { return string(e) }

type fixture struct {
	clock *testutil.DeterministicClock
	gen   *testutil.SequenceGenerator
	run   tag.PipelineTag
}

func newFixture() *fixture {
	return &fixture{
		clock: testutil.NewDeterministicClock(),
		gen:   testutil.NewSequenceGenerator("uid"),
		run:   tag.PipelineTag{RunID: "run-1", Pipeline: "test", Author: tag.AnonymousAuthor},
	}
}

func (f *fixture) container(opts ...result.ContainerOption) *result.Container {
	opts = append([]result.ContainerOption{
		result.WithClock(f.clock),
		result.WithGenerator(f.gen),
	}, opts...)
	return result.NewContainer(opts...)
}

func (f *fixture) note(text string) *note {
	return &note{Base: result.NewBaseWith("note", f.gen, f.clock), Text: text}
}

func (f *fixture) step(id string) tag.ComponentTag {
	return f.run.Component(f.gen.Generate(), id, tag.FamilyStep)
}

func TestContainer_StreamRoundTrip(t *testing.T) {
	f := newFixture()
	c := f.container()
	x := entity("x")

	var registered []result.Result
	for i := 0; i < 7; i++ {
		n := f.note(fmt.Sprintf("n%d", i))
		c.Register(x.UID(), f.step("s"), n)
		registered = append(registered, n)
	}

	assert.Equal(t, registered, c.Results().Of(x).Stream())
	assert.Equal(t, 7, c.Len())
}

func TestContainer_GenerationalInheritance(t *testing.T) {
	f := newFixture()
	first := f.container()
	x := entity("x")

	for i := 1; i <= 5; i++ {
		first.Register(x.UID(), f.step("s"), f.note(fmt.Sprintf("t%d", i)))
	}

	second := f.container(result.WithInherited(first))
	t6 := f.note("t6")
	second.Register(x.UID(), f.step("s"), t6)

	latest, ok := result.LatestOf[*note](second.Results())
	require.True(t, ok)
	assert.Equal(t, "t6", latest.Text)

	current, ok := result.CurrentOf[*note](second.Results())
	require.True(t, ok)
	assert.Equal(t, "t6", current.Text)

	assert.Len(t, second.Results().Of(x).CurrentAll(), 1)
	assert.Len(t, second.Results().Of(x).Stream(), 6)

	// The inherited history is still current in the container that made it.
	assert.Len(t, first.Results().Of(x).CurrentAll(), 5)
	assert.Equal(t, 5, first.Len(), "inheriting must not write back to the parent")
}

func TestContainer_InheritedOnlyHasNoCurrent(t *testing.T) {
	f := newFixture()
	first := f.container()
	first.Register("x", f.step("s"), f.note("old"))

	second := f.container(result.WithInherited(first))

	_, ok := second.Results().Current("note")
	assert.False(t, ok)

	latest, ok := second.Results().Latest("note")
	require.True(t, ok)
	assert.Equal(t, "old", latest.(*note).Text)
}

func TestContainer_CurrentIsSubsetOfLatestScan(t *testing.T) {
	f := newFixture()
	first := f.container()
	for i := 0; i < 3; i++ {
		first.Register("a", f.step("s"), f.note("a"))
		first.Register("b", f.step("s"), f.note("b"))
	}
	second := f.container(result.WithInherited(first))
	for i := 0; i < 4; i++ {
		second.Register("a", f.step("s"), f.note("a2"))
	}

	all := make(map[string]bool)
	for _, d := range second.Descriptors() {
		all[d.UID] = true
	}
	for _, d := range second.Current() {
		assert.True(t, all[d.UID], "current descriptor %s missing from latest scan set", d.UID)
		assert.True(t, second.IsCurrent(d))
	}
	assert.Len(t, second.Current(), 4)
}

func TestContainer_ImportKeepsProducerAndOrder(t *testing.T) {
	f := newFixture()
	parent := f.container()
	nested := f.container(result.WithInherited(parent))

	producer := f.step("inner")
	d := nested.Register("x", producer, f.note("from-nested"))

	parent.Import(nested.Current()...)
	parent.Import(nested.Current()...) // duplicates are ignored

	ds := parent.Results().OfUID("x").Descriptors()
	require.Len(t, ds, 1)
	assert.Equal(t, producer, ds[0].Tag)
	assert.Equal(t, d.CreatedAt, ds[0].CreatedAt)
	assert.True(t, parent.IsCurrent(ds[0]), "nested results are current in the enclosing run")
}

func TestContainer_OutOfOrderImportIsSorted(t *testing.T) {
	f := newFixture()
	c := f.container()

	early := result.Descriptor{UID: "early", Entity: "x", Result: f.note("early"), CreatedAt: testutil.Epoch.Add(time.Hour)}
	late := result.Descriptor{UID: "late", Entity: "x", Result: f.note("late"), CreatedAt: testutil.Epoch.Add(2 * time.Hour)}

	c.Import(late)
	c.Import(early)

	ds := c.EntityDescriptors("x")
	require.Len(t, ds, 2)
	assert.Equal(t, "early", ds[0].UID)
	assert.Equal(t, "late", ds[1].UID)

	latest, ok := c.Results().Latest("note")
	require.True(t, ok)
	assert.Equal(t, "late", latest.(*note).Text)
}

func TestResults_NotFound(t *testing.T) {
	f := newFixture()
	c := f.container()

	_, ok := c.Results().Latest("missing")
	assert.False(t, ok)
	_, ok = result.CurrentOf[*score](c.Results())
	assert.False(t, ok)
	assert.Empty(t, c.Results().OfUID("nobody").Stream())
	assert.Empty(t, result.Results{}.Stream())
}

func TestResults_ByTypeAndName(t *testing.T) {
	f := newFixture()
	c := f.container()

	c.Register("x", f.step("s"), f.note("one"))
	c.Register("x", f.step("s"), &score{Base: result.NewBaseWith("", f.gen, f.clock), Value: 3})
	c.Register("y", f.step("s"), &score{Base: result.NewBaseWith("", f.gen, f.clock), Value: 9})

	scores := result.StreamOf[*score](c.Results())
	require.Len(t, scores, 2)
	assert.Equal(t, 3, scores[0].Value)

	named := c.Results().StreamNamed("score")
	assert.Len(t, named, 2, "empty names fall back to the type name")

	latest, ok := result.LatestOf[*score](c.Results().OfUID("x"))
	require.True(t, ok)
	assert.Equal(t, 3, latest.Value)

	assert.Len(t, c.Results().StreamNamed("note"), 1)
}

func TestNameOf(t *testing.T) {
	f := newFixture()

	assert.Equal(t, "note", result.NameOf(f.note("x")))
	assert.Equal(t, "score", result.NameOf(&score{}))
	assert.Equal(t, "score", result.NameOf(score{}))
	assert.Equal(t, "", result.NameOf(nil))
}

func TestMonotonicClock_StrictlyIncreasing(t *testing.T) {
	clock := result.NewMonotonicClock()

	prev := clock.Now()
	for i := 0; i < 10000; i++ {
		next := clock.Now()
		require.True(t, next.After(prev), "clock went from %v to %v", prev, next)
		prev = next
	}
}
