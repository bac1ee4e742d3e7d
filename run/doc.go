// Package run holds the per-run aggregate shared by the step executor and
// the sink dispatcher: the Output (payload, entity index, result container),
// the ambient Context, and the Nested wrapper used when a whole pipeline
// runs as a single step.
package run
