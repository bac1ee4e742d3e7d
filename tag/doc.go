// Package tag identifies pipeline runs and the components that produce
// results inside them.
//
// A PipelineTag names one run of one pipeline. A ComponentTag attributes a
// result (or a failure) to the initializer, step or sink that produced it
// within that run. Tags are plain values: they are copied into every
// result descriptor and into every run error so that callers can always
// correlate an outcome with a specific run.
package tag
