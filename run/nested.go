package run

import "github.com/illuin-tech/data-pipeline-sub000/result"

// Nested wraps the output of a pipeline executed as a step.
//
// When registered, the step executor imports every current descriptor of
// the nested output into the enclosing output, attributed to the nested
// producers rather than to the wrapping step.
type Nested struct {
	result.Base
	Output *Output
}

// NewNested wraps out.
func NewNested(out *Output) *Nested {
	return &Nested{Base: result.NewBase("nested"), Output: out}
}
