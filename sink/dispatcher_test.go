package sink

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illuin-tech/data-pipeline-sub000/run"
	"github.com/illuin-tech/data-pipeline-sub000/tag"
)

func newOutput() *run.Output {
	out := run.NewOutput(tag.PipelineTag{RunID: "run-1", Pipeline: "test"}, nil, nil, nil)
	out.Finish()
	return out
}

func counting(n *atomic.Int32) Func {
	return func(context.Context, *run.Output, *run.Context) error {
		n.Add(1)
		return nil
	}
}

func failingSink(err error) Func {
	return func(context.Context, *run.Output, *run.Context) error {
		return err
	}
}

func TestDispatcher_SyncSinksInOrder(t *testing.T) {
	d := NewDispatcher()
	var order []string
	record := func(id string) Func {
		return func(context.Context, *run.Output, *run.Context) error {
			order = append(order, id)
			return nil
		}
	}

	err := d.Run(context.Background(), []*Descriptor{
		{ID: "a", Func: record("a")},
		{ID: "b", Func: record("b")},
		{ID: "c", Func: record("c")},
	}, newOutput(), run.NewContext())

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.False(t, d.PoolStarted(), "no async sink, no pool")

	graceful, err := d.Close(time.Second)
	assert.True(t, graceful)
	assert.NoError(t, err)
}

func TestDispatcher_SyncFailure(t *testing.T) {
	boom := errors.New("boom")
	var after atomic.Int32

	err := NewDispatcher().Run(context.Background(), []*Descriptor{
		{ID: "bad", Func: failingSink(boom)},
		{ID: "after", Func: counting(&after)},
	}, newOutput(), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "bad", se.SinkID)
	assert.Equal(t, tag.FamilySink, se.Tag.Family)
	assert.Zero(t, after.Load(), "sinks after a failed one do not run")
}

func TestDispatcher_SyncFailureRecovered(t *testing.T) {
	var handled atomic.Int32
	var after atomic.Int32

	err := NewDispatcher().Run(context.Background(), []*Descriptor{
		{
			ID:   "bad",
			Func: failingSink(errors.New("boom")),
			ErrorHandlers: []ErrorHandler{
				Rethrow,
				func(context.Context, error, *run.Output, *run.Context) error {
					handled.Add(1)
					return nil
				},
			},
		},
		{ID: "after", Func: counting(&after)},
	}, newOutput(), nil)

	require.NoError(t, err)
	assert.Equal(t, int32(1), handled.Load())
	assert.Equal(t, int32(1), after.Load())
}

func TestDispatcher_AsyncFailureIsSwallowed(t *testing.T) {
	d := NewDispatcher(WithPoolSize(func() int { return 2 }))
	var handled atomic.Int32

	err := d.Run(context.Background(), []*Descriptor{{
		ID:    "async-bad",
		Async: true,
		Func:  failingSink(errors.New("boom")),
		ErrorHandlers: []ErrorHandler{func(_ context.Context, err error, _ *run.Output, _ *run.Context) error {
			handled.Add(1)
			return err // the handler fails too; nothing surfaces
		}},
	}}, newOutput(), nil)

	require.NoError(t, err)
	assert.True(t, d.PoolStarted())

	graceful, err := d.Close(5 * time.Second)
	require.NoError(t, err)
	assert.True(t, graceful)
	assert.Equal(t, int32(1), handled.Load())
}

func TestDispatcher_AsyncDoesNotBlockCaller(t *testing.T) {
	d := NewDispatcher(WithPoolSize(func() int { return 1 }))
	release := make(chan struct{})
	var done atomic.Int32

	err := d.Run(context.Background(), []*Descriptor{{
		ID:    "slow",
		Async: true,
		Func: func(context.Context, *run.Output, *run.Context) error {
			<-release
			done.Add(1)
			return nil
		},
	}}, newOutput(), nil)

	require.NoError(t, err)
	assert.Zero(t, done.Load(), "Run returned before the async sink finished")

	close(release)
	graceful, err := d.Close(5 * time.Second)
	require.NoError(t, err)
	assert.True(t, graceful)
	assert.Equal(t, int32(1), done.Load())
}

func TestDispatcher_ManyAsyncTasksAllRun(t *testing.T) {
	d := NewDispatcher(WithPoolSize(func() int { return 4 }))
	var n atomic.Int32

	for i := 0; i < 50; i++ {
		err := d.Run(context.Background(), []*Descriptor{
			{ID: "a", Async: true, Func: counting(&n)},
			{ID: "b", Async: true, Func: counting(&n)},
		}, newOutput(), nil)
		require.NoError(t, err)
	}

	graceful, err := d.Close(5 * time.Second)
	require.NoError(t, err)
	assert.True(t, graceful)
	assert.Equal(t, int32(100), n.Load())
}

func TestDispatcher_PoolCreatedLazilyOnce(t *testing.T) {
	var calls atomic.Int32
	d := NewDispatcher(WithPoolSize(func() int {
		calls.Add(1)
		return 2
	}))
	var n atomic.Int32

	require.NoError(t, d.Run(context.Background(), []*Descriptor{{ID: "sync", Func: counting(&n)}}, newOutput(), nil))
	assert.Zero(t, calls.Load())

	for i := 0; i < 3; i++ {
		require.NoError(t, d.Run(context.Background(), []*Descriptor{{ID: "async", Async: true, Func: counting(&n)}}, newOutput(), nil))
	}
	assert.Equal(t, int32(1), calls.Load())

	_, err := d.Close(5 * time.Second)
	require.NoError(t, err)
}

func TestDispatcher_CloseIsIdempotent(t *testing.T) {
	d := NewDispatcher()
	var n atomic.Int32
	require.NoError(t, d.Run(context.Background(), []*Descriptor{{ID: "async", Async: true, Func: counting(&n)}}, newOutput(), nil))

	g1, err1 := d.Close(5 * time.Second)
	g2, err2 := d.Close(5 * time.Second)

	assert.True(t, g1)
	assert.NoError(t, err1)
	assert.Equal(t, g1, g2)
	assert.Equal(t, err1, err2)
}

func TestDispatcher_SubmitAfterClose(t *testing.T) {
	d := NewDispatcher()
	_, err := d.Close(time.Second)
	require.NoError(t, err)

	var n atomic.Int32
	err = d.Run(context.Background(), []*Descriptor{{ID: "late", Async: true, Func: counting(&n)}}, newOutput(), nil)

	assert.ErrorIs(t, err, ErrClosed)
	assert.Zero(t, n.Load())
}

func TestDispatcher_ForcedShutdown(t *testing.T) {
	d := NewDispatcher(WithPoolSize(func() int { return 1 }))
	started := make(chan struct{})
	var cancelled atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)

	err := d.Run(context.Background(), []*Descriptor{{
		ID:    "stuck",
		Async: true,
		Func: func(ctx context.Context, _ *run.Output, _ *run.Context) error {
			defer wg.Done()
			close(started)
			<-ctx.Done()
			cancelled.Store(true)
			return ctx.Err()
		},
	}}, newOutput(), nil)
	require.NoError(t, err)
	<-started

	graceful, err := d.Close(20 * time.Millisecond)

	assert.False(t, graceful)
	assert.ErrorIs(t, err, ErrShutdownTimeout)
	wg.Wait()
	assert.True(t, cancelled.Load(), "running tasks see their context cancelled")
}

func TestDispatcher_WrappersApplyInOrder(t *testing.T) {
	var trace []string
	wrap := func(name string) Wrapper {
		return func(next Func) Func {
			return func(ctx context.Context, out *run.Output, rc *run.Context) error {
				trace = append(trace, name+">")
				err := next(ctx, out, rc)
				trace = append(trace, "<"+name)
				return err
			}
		}
	}

	err := NewDispatcher().Run(context.Background(), []*Descriptor{{
		ID: "s",
		Func: func(context.Context, *run.Output, *run.Context) error {
			trace = append(trace, "sink")
			return nil
		},
		Wrappers: []Wrapper{wrap("outer"), wrap("inner")},
	}}, newOutput(), nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"outer>", "inner>", "sink", "<inner", "<outer"}, trace)
}

func TestTaskQueue_FIFOAndClose(t *testing.T) {
	q := newTaskQueue()
	var got []int
	for i := 1; i <= 3; i++ {
		i := i
		require.True(t, q.Enqueue(func(context.Context) { got = append(got, i) }))
	}
	assert.Equal(t, 3, q.Len())

	for {
		tk, ok := q.TryDequeue()
		if !ok {
			break
		}
		tk(context.Background())
	}
	assert.Equal(t, []int{1, 2, 3}, got)

	q.Close()
	q.Close()
	assert.False(t, q.Enqueue(func(context.Context) {}))
	assert.True(t, q.Drained())
}

func TestPool_PanicsSurfaceAtShutdown(t *testing.T) {
	p := newPool(2)

	var ran atomic.Int32
	require.True(t, p.submit(func(context.Context) { panic("sink exploded") }))
	require.True(t, p.submit(func(context.Context) { ran.Add(1) }))

	drained, err := p.shutdown(time.Second)
	require.NoError(t, err)
	assert.True(t, drained)
	assert.Equal(t, int32(1), ran.Load(), "a panicking task does not stop its worker")
	require.Error(t, p.panicked)
	assert.ErrorIs(t, p.panicked, ErrTaskPanic)
	assert.Contains(t, p.panicked.Error(), "sink exploded")
}

func TestDescriptor_Validate(t *testing.T) {
	var nilSink *Descriptor
	assert.Error(t, nilSink.Validate())
	assert.Error(t, (&Descriptor{ID: "x"}).Validate())
	assert.Error(t, (&Descriptor{Func: Func(func(context.Context, *run.Output, *run.Context) error { return nil })}).Validate())
	assert.NoError(t, (&Descriptor{ID: "x", Func: func(context.Context, *run.Output, *run.Context) error { return nil }}).Validate())
}
