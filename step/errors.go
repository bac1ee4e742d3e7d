package step

import (
	"errors"
	"fmt"

	"github.com/illuin-tech/data-pipeline-sub000/tag"
)

// Error is a step failure that no error handler recovered from.
// It aborts the run.
type Error struct {
	StepID    string
	EntityUID string
	Tag       tag.ComponentTag
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("step %s failed on entity %s: %v", e.StepID, e.EntityUID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts the step failure from err, if any.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
