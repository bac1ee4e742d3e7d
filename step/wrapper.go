package step

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/illuin-tech/data-pipeline-sub000/result"
)

// ErrTimeout matches every *TimeoutError.
var ErrTimeout = errors.New("step timed out")

// ErrPanic wraps a panic raised by a call running under TimeLimit.
var ErrPanic = errors.New("step panicked")

// TimeoutError is returned by a TimeLimit wrapper when the call overruns.
type TimeoutError struct {
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("step timed out after %s", e.Limit)
}

// Is makes errors.Is(err, ErrTimeout) true.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// TimeLimit bounds each call to d. The call receives a context with that
// deadline; when it overruns, the wrapper returns a *TimeoutError without
// waiting for the call to notice, and the error goes through the step's
// error handlers like any other. A panic in the call is returned as an
// error wrapping ErrPanic, since it happens on another goroutine.
func TimeLimit(d time.Duration) Wrapper {
	return func(next Func) Func {
		return func(ctx context.Context, a Args) (result.Result, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			type outcome struct {
				r   result.Result
				err error
			}
			done := make(chan outcome, 1)
			go func() {
				defer func() {
					if p := recover(); p != nil {
						done <- outcome{err: fmt.Errorf("%w: %v", ErrPanic, p)}
					}
				}()
				r, err := next(ctx, a)
				done <- outcome{r: r, err: err}
			}()

			select {
			case o := <-done:
				return o.r, o.err
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return nil, &TimeoutError{Limit: d}
				}
				return nil, ctx.Err()
			}
		}
	}
}

// Retry re-invokes the call on error, up to attempts calls in total,
// waiting wait between calls. The last error is returned once attempts are
// exhausted. Placing Retry before TimeLimit in a wrapper list retries
// timeouts; placing it after bounds all attempts together.
func Retry(attempts int, wait time.Duration) Wrapper {
	if attempts < 1 {
		attempts = 1
	}
	return func(next Func) Func {
		return func(ctx context.Context, a Args) (result.Result, error) {
			var err error
			for attempt := 1; attempt <= attempts; attempt++ {
				var r result.Result
				r, err = next(ctx, a)
				if err == nil {
					return r, nil
				}
				if attempt == attempts {
					break
				}
				slog.Debug("step attempt failed, retrying",
					"attempt", attempt,
					"max_attempts", attempts,
					"entity_uid", a.Entity.UID(),
					"error", err,
				)
				if werr := sleep(ctx, wait); werr != nil {
					return nil, fmt.Errorf("retry interrupted after %d attempts: %w: %w", attempt, werr, err)
				}
			}
			return nil, fmt.Errorf("retries exhausted after %d attempts: %w", attempts, err)
		}
	}
}

// Logged records each call at debug level.
func Logged(stepID string) Wrapper {
	return func(next Func) Func {
		return func(ctx context.Context, a Args) (result.Result, error) {
			start := time.Now()
			r, err := next(ctx, a)
			if err != nil {
				slog.Debug("step call failed",
					"step_id", stepID,
					"entity_uid", a.Entity.UID(),
					"duration", time.Since(start),
					"error", err,
				)
				return r, err
			}
			slog.Debug("step call done",
				"step_id", stepID,
				"entity_uid", a.Entity.UID(),
				"duration", time.Since(start),
			)
			return r, nil
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
