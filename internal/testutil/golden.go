package testutil

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/illuin-tech/data-pipeline-sub000/internal/canonical"
	"github.com/illuin-tech/data-pipeline-sub000/result"
	"github.com/illuin-tech/data-pipeline-sub000/run"
	"github.com/illuin-tech/data-pipeline-sub000/tag"
)

// RunSnapshot captures the complete state of a run output.
// All fields use canonical JSON serialization for deterministic comparison.
type RunSnapshot struct {
	Run             tag.PipelineTag  `json:"run"`
	Finished        bool             `json:"finished"`
	GenerationStart string           `json:"generation_start"`
	Entities        []string         `json:"entities"`
	Results         []ResultSnapshot `json:"results"`
}

// ResultSnapshot is one descriptor of the container log.
type ResultSnapshot struct {
	UID       string          `json:"uid"`
	Entity    string          `json:"entity"`
	Name      string          `json:"name"`
	Producer  string          `json:"producer"`
	CreatedAt string          `json:"created_at"`
	Current   bool            `json:"current"`
	Payload   json.RawMessage `json:"payload"`
}

// Snapshot builds the snapshot of out, including inherited history.
func Snapshot(out *run.Output) (RunSnapshot, error) {
	c := out.Container()
	s := RunSnapshot{
		Run:             out.Tag(),
		Finished:        out.Finished(),
		GenerationStart: formatTime(c.GenerationStart()),
		Entities:        out.Index().UIDs(),
		Results:         []ResultSnapshot{},
	}
	if s.Entities == nil {
		s.Entities = []string{}
	}

	for _, d := range c.Descriptors() {
		payload, err := canonical.Marshal(d.Result)
		if err != nil {
			return RunSnapshot{}, fmt.Errorf("snapshot result %s: %w", d.UID, err)
		}
		s.Results = append(s.Results, ResultSnapshot{
			UID:       d.UID,
			Entity:    d.Entity,
			Name:      result.NameOf(d.Result),
			Producer:  d.Tag.String(),
			CreatedAt: formatTime(d.CreatedAt),
			Current:   c.IsCurrent(d),
			Payload:   payload,
		})
	}
	return s, nil
}

// AssertGolden compares the snapshot of out against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run the test with -update.
func AssertGolden(t *testing.T, name string, out *run.Output) {
	t.Helper()

	s, err := Snapshot(out)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	data, err := canonical.Marshal(s)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
