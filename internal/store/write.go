package store

import (
	"context"
	"fmt"
)

// WriteRun journals a run and its descriptors in one transaction.
//
// Uses ON CONFLICT DO NOTHING for idempotency: writing the same run twice
// leaves the first write in place and reports inserted=false. Descriptors
// must belong to run.RunID.
func (s *Store) WriteRun(ctx context.Context, run Run, descriptors []Descriptor) (inserted bool, err error) {
	for _, d := range descriptors {
		if d.RunID != run.RunID {
			return false, fmt.Errorf("write run: descriptor %s belongs to run %q, not %q", d.UID, d.RunID, run.RunID)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, pipeline, author, recorded_at, results)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`,
		run.RunID,
		run.Pipeline,
		run.Author,
		marshalTime(run.RecordedAt),
		len(descriptors),
	)
	if err != nil {
		return false, fmt.Errorf("write run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write run: rows affected: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO descriptors
		(run_id, uid, entity_uid, name,
		 producer_uid, producer_pipeline, producer_run_id, producer_author, producer_id, producer_family,
		 created_at, payload, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, uid) DO NOTHING
	`)
	if err != nil {
		return false, fmt.Errorf("write descriptors: prepare: %w", err)
	}
	defer stmt.Close()

	for _, d := range descriptors {
		_, err := stmt.ExecContext(ctx,
			d.RunID,
			d.UID,
			d.EntityUID,
			d.Name,
			d.Producer.UID,
			d.Producer.Pipeline,
			d.Producer.RunID,
			d.Producer.Author,
			d.Producer.ID,
			d.Producer.Family,
			marshalTime(d.CreatedAt),
			d.Payload,
			d.ContentHash,
		)
		if err != nil {
			return false, fmt.Errorf("write descriptor %s: %w", d.UID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write run: commit: %w", err)
	}
	return n > 0, nil
}
