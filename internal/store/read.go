package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ReadRuns returns every journaled run, oldest first.
// Returns an empty slice (not nil) when the journal is empty.
func (s *Store) ReadRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, pipeline, author, recorded_at, results
		FROM runs
		ORDER BY recorded_at ASC, run_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun retrieves a single run by id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, pipeline, author, recorded_at, results
		FROM runs
		WHERE run_id = ?
	`, runID)
	return scanRun(row)
}

// ReadDescriptors returns the descriptors of a run in container order.
// Returns an empty slice (not nil) if the run has none.
func (s *Store) ReadDescriptors(ctx context.Context, runID string) ([]Descriptor, error) {
	return s.readDescriptors(ctx, `
		SELECT run_id, uid, entity_uid, name,
		       producer_uid, producer_pipeline, producer_run_id, producer_author, producer_id, producer_family,
		       created_at, payload, content_hash
		FROM descriptors
		WHERE run_id = ?
		ORDER BY created_at ASC, uid COLLATE BINARY ASC
	`, runID)
}

// ReadEntityDescriptors returns the descriptors of one entity in a run.
func (s *Store) ReadEntityDescriptors(ctx context.Context, runID, entityUID string) ([]Descriptor, error) {
	return s.readDescriptors(ctx, `
		SELECT run_id, uid, entity_uid, name,
		       producer_uid, producer_pipeline, producer_run_id, producer_author, producer_id, producer_family,
		       created_at, payload, content_hash
		FROM descriptors
		WHERE run_id = ? AND entity_uid = ?
		ORDER BY created_at ASC, uid COLLATE BINARY ASC
	`, runID, entityUID)
}

func (s *Store) readDescriptors(ctx context.Context, query string, args ...any) ([]Descriptor, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query descriptors: %w", err)
	}
	defer rows.Close()

	ds := []Descriptor{}
	for rows.Next() {
		var d Descriptor
		var createdAt int64
		err := rows.Scan(
			&d.RunID, &d.UID, &d.EntityUID, &d.Name,
			&d.Producer.UID, &d.Producer.Pipeline, &d.Producer.RunID, &d.Producer.Author, &d.Producer.ID, &d.Producer.Family,
			&createdAt, &d.Payload, &d.ContentHash,
		)
		if err != nil {
			return nil, fmt.Errorf("scan descriptor: %w", err)
		}
		d.CreatedAt = unmarshalTime(createdAt)
		ds = append(ds, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate descriptors: %w", err)
	}
	return ds, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var recordedAt int64
	if err := row.Scan(&r.RunID, &r.Pipeline, &r.Author, &recordedAt, &r.Results); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.RecordedAt = unmarshalTime(recordedAt)
	return r, nil
}
