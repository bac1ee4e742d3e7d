// Package step implements the step execution engine.
//
// # Execution model
//
// The Executor runs steps strictly in declaration order on the calling
// goroutine. For each step it snapshots the eligible entities from the
// run's index (not discarded, or the step is pinned, and accepted by the
// step's Condition) and calls the step once per entity, in index order.
//
// Each call yields a result, or an error that is routed through the step's
// error handlers in order. The result is then evaluated into a Strategy: a
// set of independent flags that decide whether the result is registered and
// how the rest of the run proceeds.
//
// # Strategy flags
//
//   - RegisterResult: store the result (multi-results member by member,
//     nested pipeline outputs by importing their current descriptors).
//   - ExitPipeline: end the run now and skip every sink.
//   - DiscardCurrent / DiscardAll: exclude the entity (or every indexed
//     entity) from the remaining non-pinned steps.
//   - StopCurrent: stop this step's loop and move on to the next step.
//   - StopAll: stop the step loop; sinks still run.
//
// Flags are applied in that order. Whatever the path out of the loop, the
// run output is sealed exactly once before Run returns.
//
// The entity snapshot of a step is fixed for the whole argument loop:
// entities indexed while the loop runs are not visited by that step, and
// DiscardAll only affects entities indexed at the moment it is applied.
package step
