package pipeline

import (
	"errors"
	"fmt"

	"github.com/illuin-tech/data-pipeline-sub000/run"
	"github.com/illuin-tech/data-pipeline-sub000/tag"
)

// Phase identifies the part of a run that failed.
type Phase string

const (
	PhaseInitialization Phase = "initialization"
	PhaseIndexing       Phase = "indexing"
	PhaseSteps          Phase = "steps"
	PhaseSinks          Phase = "sinks"
)

// Error is a failed run.
//
// Output is the run's output at the time of the failure. It is always
// sealed and holds every result registered before the failure. Context is
// the run context the run was started with.
type Error struct {
	Tag   tag.PipelineTag
	Phase Phase
	// Component is the failing component, when one can be named.
	Component tag.ComponentTag
	Output    *run.Output
	Context   *run.Context
	Err       error
}

func (e *Error) Error() string {
	if e.Component.ID != "" {
		return fmt.Sprintf("pipeline %s: %s failed (run=%s, component=%s): %v",
			e.Tag.Pipeline, e.Phase, e.Tag.RunID, e.Component.ID, e.Err)
	}
	return fmt.Sprintf("pipeline %s: %s failed (run=%s): %v",
		e.Tag.Pipeline, e.Phase, e.Tag.RunID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts the *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsPhase reports whether err is a run failure in the given phase.
// Uses errors.As to handle wrapped errors.
func IsPhase(err error, phase Phase) bool {
	pe, ok := AsError(err)
	return ok && pe.Phase == phase
}
