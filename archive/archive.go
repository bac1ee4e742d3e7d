// Package archive uploads run snapshots to object storage.
//
// A snapshot is newline-delimited canonical JSON: one line per current
// result of the run, in container order. Objects are keyed
// <prefix><pipeline>/<run_id>.ndjson.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/illuin-tech/data-pipeline-sub000/internal/canonical"
	"github.com/illuin-tech/data-pipeline-sub000/result"
	"github.com/illuin-tech/data-pipeline-sub000/run"
	"github.com/illuin-tech/data-pipeline-sub000/sink"
	"github.com/illuin-tech/data-pipeline-sub000/tag"
)

// ContentType of snapshot objects.
const ContentType = "application/x-ndjson"

// ObjectStore stores objects. MinioStore implements it.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
}

// Archiver writes run snapshots into one bucket.
type Archiver struct {
	store  ObjectStore
	bucket string
	prefix string
}

// New creates an archiver. prefix may be empty.
func New(store ObjectStore, bucket, prefix string) (*Archiver, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &Archiver{store: store, bucket: bucket, prefix: prefix}, nil
}

// Key returns the object key of a run snapshot.
func (a *Archiver) Key(pt tag.PipelineTag) string {
	return a.prefix + path.Join(pt.Pipeline, pt.RunID+".ndjson")
}

// Archive uploads the snapshot of out and returns its key.
func (a *Archiver) Archive(ctx context.Context, out *run.Output) (string, error) {
	data, err := Snapshot(out)
	if err != nil {
		return "", err
	}
	key := a.Key(out.Tag())
	if err := a.store.Put(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), ContentType); err != nil {
		return "", fmt.Errorf("archive %s/%s: %w", a.bucket, key, err)
	}
	slog.Debug("run archived",
		"run_id", out.Tag().RunID,
		"bucket", a.bucket,
		"key", key,
		"bytes", len(data),
	)
	return key, nil
}

// Sink returns a sink archiving every run it sees.
func (a *Archiver) Sink(id string, async bool) *sink.Descriptor {
	return &sink.Descriptor{
		ID:    id,
		Async: async,
		Func: func(ctx context.Context, out *run.Output, _ *run.Context) error {
			_, err := a.Archive(ctx, out)
			return err
		},
	}
}

// Record is one snapshot line.
type Record struct {
	UID       string           `json:"uid"`
	Entity    string           `json:"entity"`
	Name      string           `json:"name"`
	Producer  tag.ComponentTag `json:"producer"`
	CreatedAt string           `json:"created_at"`
	Payload   json.RawMessage  `json:"payload"`
}

// Snapshot encodes the current results of out as canonical NDJSON.
func Snapshot(out *run.Output) ([]byte, error) {
	var buf bytes.Buffer
	for _, d := range out.Container().Current() {
		line, err := encodeRecord(d)
		if err != nil {
			return nil, fmt.Errorf("snapshot run %s: %w", out.Tag().RunID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func encodeRecord(d result.Descriptor) ([]byte, error) {
	payload, err := canonical.Marshal(d.Result)
	if err != nil {
		return nil, fmt.Errorf("encode result %s: %w", d.UID, err)
	}
	return canonical.Marshal(Record{
		UID:       d.UID,
		Entity:    d.Entity,
		Name:      result.NameOf(d.Result),
		Producer:  d.Tag,
		CreatedAt: d.CreatedAt.UTC().Format(time.RFC3339Nano),
		Payload:   payload,
	})
}
