package step

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/illuin-tech/data-pipeline-sub000/result"
)

// Always returns an evaluator that yields s whatever the result.
func Always(s Strategy) Evaluator {
	return func(result.Result, Args) Strategy {
		return s
	}
}

// Common evaluators.
var (
	AlwaysContinue = Always(Continue)
	AlwaysSkip     = Always(Skip)
	AlwaysDiscard  = Always(DiscardAndContinue)
	AlwaysAbort    = Always(Abort)
	AlwaysExit     = Always(Exit)
)

// OnFailure yields failed when the result is a *Failure produced by
// AsFailure, and ok otherwise.
func OnFailure(failed, ok Strategy) Evaluator {
	return func(r result.Result, _ Args) Strategy {
		if _, isFailure := r.(*Failure); isFailure {
			return failed
		}
		return ok
	}
}

// Failure is the result produced by AsFailure.
type Failure struct {
	result.Base
	Err error
}

// NewFailure wraps err into a result named "error".
func NewFailure(err error) *Failure {
	return &Failure{Base: result.NewBase("error"), Err: err}
}

// Message returns the wrapped error text.
func (f *Failure) Message() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// MarshalJSON encodes the failure as {"error": message}.
func (f *Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error string `json:"error"`
	}{f.Message()})
}

// Rethrow passes the error on unchanged.
func Rethrow(_ context.Context, err error, _ Args) (result.Result, error) {
	return nil, err
}

// AsFailure recovers from any error by turning it into a *Failure result.
func AsFailure(_ context.Context, err error, _ Args) (result.Result, error) {
	return NewFailure(err), nil
}

// Recover builds a handler from fn. A nil result from fn means the error
// could not be handled and is passed on.
func Recover(fn func(err error, a Args) result.Result) ErrorHandler {
	return func(_ context.Context, err error, a Args) (result.Result, error) {
		if r := fn(err, a); r != nil {
			return r, nil
		}
		return nil, err
	}
}

// RecoverIf handles only errors matching target (errors.Is) and passes
// every other error on.
func RecoverIf(target error, h ErrorHandler) ErrorHandler {
	return func(ctx context.Context, err error, a Args) (result.Result, error) {
		if !errors.Is(err, target) {
			return nil, err
		}
		return h(ctx, err, a)
	}
}
