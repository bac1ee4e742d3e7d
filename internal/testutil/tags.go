package testutil

import "github.com/illuin-tech/data-pipeline-sub000/tag"

// RunTag returns the tag of a run of the "test" pipeline.
func RunTag(runID string) tag.PipelineTag {
	return tag.PipelineTag{RunID: runID, Pipeline: "test", Author: tag.AnonymousAuthor}
}

// StepTag returns a step component tag inside run "run-1".
func StepTag(id string) tag.ComponentTag {
	return RunTag("run-1").Component("c-"+id, id, tag.FamilyStep)
}
