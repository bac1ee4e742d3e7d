// Package store provides SQLite-backed durable storage for run journals.
//
// The store is an append-only log with two tables:
//   - runs: one row per journaled run (pipeline, author, result count)
//   - descriptors: the results a run produced, with their producer and
//     canonical JSON payload
//
// # Critical Patterns
//
// Idempotent writes:
//   - runs are keyed by run_id, descriptors by (run_id, uid)
//   - every insert uses ON CONFLICT DO NOTHING, so journaling the same run
//     twice is harmless
//
// Deterministic reads:
//   - descriptors: ORDER BY created_at ASC, uid ASC COLLATE BINARY
//   - runs: ORDER BY recorded_at ASC, run_id ASC COLLATE BINARY
//   - timestamps are stored as integer Unix nanoseconds, never text
//
// # Database Configuration
//
// Pragmas are set through the DSN, so the driver applies them to every
// connection; Open refuses a database that did not switch to WAL.
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
