package tag

import "fmt"

// Family is the kind of component a ComponentTag refers to.
type Family string

const (
	FamilyInitializer Family = "initializer"
	FamilyIndexer     Family = "indexer"
	FamilyStep        Family = "step"
	FamilySink        Family = "sink"
)

// AnonymousAuthor is used when no author could be resolved for a run.
const AnonymousAuthor = "anonymous"

// PipelineTag identifies one run of a pipeline.
type PipelineTag struct {
	RunID    string `json:"run_id"`
	Pipeline string `json:"pipeline"`
	Author   string `json:"author"`
}

// String renders the tag as pipeline/run_id@author.
func (t PipelineTag) String() string {
	return fmt.Sprintf("%s/%s@%s", t.Pipeline, t.RunID, t.Author)
}

// Component builds the tag of a component running inside this run.
func (t PipelineTag) Component(uid, id string, family Family) ComponentTag {
	return ComponentTag{
		UID:      uid,
		Pipeline: t,
		ID:       id,
		Family:   family,
	}
}

// ComponentTag attributes a result to the component that produced it.
type ComponentTag struct {
	UID      string      `json:"uid"`
	Pipeline PipelineTag `json:"pipeline"`
	ID       string      `json:"id"`
	Family   Family      `json:"family"`
}

// String renders the tag as pipeline/run_id:family:id.
func (t ComponentTag) String() string {
	return fmt.Sprintf("%s/%s:%s:%s", t.Pipeline.Pipeline, t.Pipeline.RunID, t.Family, t.ID)
}
