// Package sink dispatches the terminal actions of a run.
//
// Synchronous sinks run inline on the caller's goroutine, in declaration
// order; a failure that no error handler recovers fails the run.
//
// Asynchronous sinks are submitted to a worker pool shared by every run of
// a pipeline. The pool is created on the first asynchronous submission and
// sized by a caller-supplied provider. The caller never waits for these
// tasks: by the time one runs, the run has usually returned its output, so
// an unrecovered asynchronous failure is logged and dropped.
//
// Close stops the pool once: it refuses new tasks, drains the queue for up
// to the given timeout, then cancels whatever is still running.
package sink
