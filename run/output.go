package run

import (
	"errors"
	"sync/atomic"

	"github.com/illuin-tech/data-pipeline-sub000/result"
	"github.com/illuin-tech/data-pipeline-sub000/tag"
)

// ErrSealed is returned when registering into an Output after Finish.
var ErrSealed = errors.New("output is finished")

// Output is the aggregate of one run: its tag, payload, entity index and
// result container.
//
// It is written only by the step executor and sealed exactly once, before
// any sink observes it. Sinks read it; they never mutate the container.
type Output struct {
	tag       tag.PipelineTag
	payload   any
	index     *Index
	container *result.Container
	finished  atomic.Bool
}

// NewOutput creates the output shell of a run.
func NewOutput(t tag.PipelineTag, payload any, index *Index, container *result.Container) *Output {
	if index == nil {
		index = NewIndex()
	}
	if container == nil {
		container = result.NewContainer()
	}
	return &Output{
		tag:       t,
		payload:   payload,
		index:     index,
		container: container,
	}
}

func (o *Output) Tag() tag.PipelineTag         { return o.tag }
func (o *Output) Payload() any                 { return o.payload }
func (o *Output) Index() *Index                { return o.index }
func (o *Output) Container() *result.Container { return o.container }
func (o *Output) Results() result.Results      { return o.container.Results() }

// Register stores r under entityUID, attributed to producer.
func (o *Output) Register(entityUID string, producer tag.ComponentTag, r result.Result) (result.Descriptor, error) {
	if o.Finished() {
		return result.Descriptor{}, ErrSealed
	}
	return o.container.Register(entityUID, producer, r), nil
}

// Import copies descriptors produced by another output's container,
// keeping their original producers.
func (o *Output) Import(ds ...result.Descriptor) error {
	if o.Finished() {
		return ErrSealed
	}
	o.container.Import(ds...)
	return nil
}

// Finish seals the output. Only the first call has an effect; it returns
// true when this call performed the seal.
func (o *Output) Finish() bool {
	return o.finished.CompareAndSwap(false, true)
}

// Finished reports whether the output is sealed.
func (o *Output) Finished() bool {
	return o.finished.Load()
}
