// Package journal persists run results to SQLite.
//
// A Journal records the current results of finished runs (never the
// inherited history of nested runs) together with their producers, a
// canonical JSON payload and a content hash. Its Sink method plugs it into
// a pipeline:
//
//	j, err := journal.Open("runs.db")
//	...
//	p, err := pipeline.New("lines", pipeline.WithSinks(j.Sink("journal", false)))
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/illuin-tech/data-pipeline-sub000/internal/store"
	"github.com/illuin-tech/data-pipeline-sub000/run"
	"github.com/illuin-tech/data-pipeline-sub000/sink"
	"github.com/illuin-tech/data-pipeline-sub000/tag"
)

// ErrRunNotFound is returned when a run id is not in the journal.
var ErrRunNotFound = errors.New("run not found in journal")

// Run is a journaled run.
type Run struct {
	Tag        tag.PipelineTag
	RecordedAt time.Time
	Results    int
}

// Entry is a journaled result.
type Entry struct {
	UID         string
	EntityUID   string
	Name        string
	Producer    tag.ComponentTag
	CreatedAt   time.Time
	Payload     json.RawMessage
	ContentHash string
}

// Journal is a SQLite-backed result journal.
//
// Thread-safety: safe for concurrent use, including from asynchronous sinks.
type Journal struct {
	store *store.Store
	now   func() time.Time
}

// Option configures a Journal.
type Option func(*Journal)

// WithNow sets the time source for run recording timestamps.
func WithNow(now func() time.Time) Option {
	return func(j *Journal) {
		j.now = now
	}
}

// Open opens or creates the journal database at path.
func Open(path string, opts ...Option) (*Journal, error) {
	s, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	j := &Journal{store: s, now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.store.Close()
}

// Record journals the current results of out. It reports false when the
// run was already journaled, in which case nothing changes.
func (j *Journal) Record(ctx context.Context, out *run.Output) (bool, error) {
	pt := out.Tag()
	current := out.Container().Current()

	records := make([]store.Descriptor, 0, len(current))
	for _, d := range current {
		rec, err := toRecord(pt.RunID, d)
		if err != nil {
			return false, fmt.Errorf("journal run %s: %w", pt.RunID, err)
		}
		records = append(records, rec)
	}

	inserted, err := j.store.WriteRun(ctx, store.Run{
		RunID:      pt.RunID,
		Pipeline:   pt.Pipeline,
		Author:     pt.Author,
		RecordedAt: j.now(),
	}, records)
	if err != nil {
		return false, fmt.Errorf("journal run %s: %w", pt.RunID, err)
	}

	slog.Debug("run journaled",
		"pipeline", pt.Pipeline,
		"run_id", pt.RunID,
		"results", len(records),
		"inserted", inserted,
	)
	return inserted, nil
}

// Sink returns a sink recording every run it sees.
func (j *Journal) Sink(id string, async bool) *sink.Descriptor {
	return &sink.Descriptor{
		ID:    id,
		Async: async,
		Func: func(ctx context.Context, out *run.Output, _ *run.Context) error {
			_, err := j.Record(ctx, out)
			return err
		},
	}
}

// Runs lists journaled runs, oldest first.
func (j *Journal) Runs(ctx context.Context) ([]Run, error) {
	rows, err := j.store.ReadRuns(ctx)
	if err != nil {
		return nil, err
	}
	runs := make([]Run, len(rows))
	for i, r := range rows {
		runs[i] = fromRun(r)
	}
	return runs, nil
}

// Run returns one journaled run.
func (j *Journal) Run(ctx context.Context, runID string) (Run, error) {
	r, err := j.store.ReadRun(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return Run{}, err
	}
	return fromRun(r), nil
}

// Entries returns the results of a run in container order.
func (j *Journal) Entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := j.store.ReadDescriptors(ctx, runID)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(rows))
	for i, d := range rows {
		entries[i] = fromRecord(d)
	}
	return entries, nil
}

// EntityEntries returns the results of one entity of a run.
func (j *Journal) EntityEntries(ctx context.Context, runID, entityUID string) ([]Entry, error) {
	rows, err := j.store.ReadEntityDescriptors(ctx, runID, entityUID)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(rows))
	for i, d := range rows {
		entries[i] = fromRecord(d)
	}
	return entries, nil
}

// Verify recomputes the content hash of every entry of a run and returns
// an error naming the first entry whose payload no longer matches.
func (j *Journal) Verify(ctx context.Context, runID string) error {
	if _, err := j.Run(ctx, runID); err != nil {
		return err
	}
	entries, err := j.Entries(ctx, runID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if got := contentHash(e.Name, e.Payload); got != e.ContentHash {
			return fmt.Errorf("run %s: entry %s content hash mismatch (stored %s, computed %s)",
				runID, e.UID, e.ContentHash, got)
		}
	}
	return nil
}
