// Package pipeline orchestrates runs.
//
// A Pipeline is an immutable, validated set of components built once with
// New and shared by every run:
//
//   - an optional Initializer turning the input into the run payload
//   - Indexers discovering the entities the steps operate on
//   - steps, executed by a step.Executor
//   - sinks, dispatched by a sink.Dispatcher once the output is sealed
//
// A run is strictly sequential on the calling goroutine: initialization,
// indexing, the step loop, then synchronous sinks. Asynchronous sinks run
// on the pipeline's worker pool, which Close shuts down.
//
// Every failure is reported as an *Error carrying the phase it happened in
// and the (possibly partial) output of the run.
package pipeline
