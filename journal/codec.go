package journal

import (
	"encoding/json"
	"fmt"

	"github.com/illuin-tech/data-pipeline-sub000/internal/canonical"
	"github.com/illuin-tech/data-pipeline-sub000/internal/store"
	"github.com/illuin-tech/data-pipeline-sub000/result"
	"github.com/illuin-tech/data-pipeline-sub000/tag"
)

func toRecord(runID string, d result.Descriptor) (store.Descriptor, error) {
	payload, err := canonical.Marshal(d.Result)
	if err != nil {
		return store.Descriptor{}, fmt.Errorf("encode result %s: %w", d.UID, err)
	}
	name := result.NameOf(d.Result)

	return store.Descriptor{
		RunID:     runID,
		UID:       d.UID,
		EntityUID: d.Entity,
		Name:      name,
		Producer: store.Producer{
			UID:      d.Tag.UID,
			Pipeline: d.Tag.Pipeline.Pipeline,
			RunID:    d.Tag.Pipeline.RunID,
			Author:   d.Tag.Pipeline.Author,
			ID:       d.Tag.ID,
			Family:   string(d.Tag.Family),
		},
		CreatedAt:   d.CreatedAt,
		Payload:     string(payload),
		ContentHash: contentHash(name, payload),
	}, nil
}

// contentHash binds the result name to its canonical payload.
func contentHash(name string, payload []byte) string {
	data := make([]byte, 0, len(name)+1+len(payload))
	data = append(data, name...)
	data = append(data, 0x00)
	data = append(data, payload...)
	return canonical.Hash(canonical.DomainResult, data)
}

func fromRun(r store.Run) Run {
	return Run{
		Tag: tag.PipelineTag{
			RunID:    r.RunID,
			Pipeline: r.Pipeline,
			Author:   r.Author,
		},
		RecordedAt: r.RecordedAt,
		Results:    r.Results,
	}
}

func fromRecord(d store.Descriptor) Entry {
	return Entry{
		UID:       d.UID,
		EntityUID: d.EntityUID,
		Name:      d.Name,
		Producer: tag.ComponentTag{
			UID: d.Producer.UID,
			Pipeline: tag.PipelineTag{
				RunID:    d.Producer.RunID,
				Pipeline: d.Producer.Pipeline,
				Author:   d.Producer.Author,
			},
			ID:     d.Producer.ID,
			Family: tag.Family(d.Producer.Family),
		},
		CreatedAt:   d.CreatedAt,
		Payload:     json.RawMessage(d.Payload),
		ContentHash: d.ContentHash,
	}
}
