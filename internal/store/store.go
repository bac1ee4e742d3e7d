package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// connPragmas are passed in the DSN so the driver applies them to every
// connection it opens, not only the first one.
var connPragmas = url.Values{
	"_journal_mode": {"WAL"},
	"_synchronous":  {"NORMAL"},
	"_busy_timeout": {"5000"},
	"_foreign_keys": {"on"},
}

// migration upgrades a journal created by an older release. Version is the
// user_version the database has once the migration is applied.
type migration struct {
	version int
	stmt    string
}

// migrations run in order against databases whose user_version is below
// their version. schema.sql only ever gains IF NOT EXISTS statements, so
// anything a migration adds must also be idempotent.
var migrations = []migration{
	// Per-entity journal lookups (inspect --entity, EntityEntries) scan by
	// (run_id, entity_uid); journals written before the lookup existed
	// only have the created_at ordering index.
	{version: 1, stmt: `CREATE INDEX IF NOT EXISTS idx_descriptors_entity
		ON descriptors(run_id, entity_uid)`},
}

// schemaVersion is the user_version of an up-to-date journal.
func schemaVersion() int {
	return migrations[len(migrations)-1].version
}

// Store is the SQLite database behind a run journal.
//
// A single connection serialises writers; WAL keeps readers (inspect, Verify)
// unblocked while an asynchronous journal sink is writing.
type Store struct {
	db *sql.DB
}

// Open opens the journal at path, creating it when missing, and brings its
// schema up to date. Opening an existing journal again is harmless.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.init(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal %s: %w", path, err)
	}
	return s, nil
}

func dsn(path string) string {
	return "file:" + path + "?" + connPragmas.Encode()
}

func (s *Store) init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	mode, err := s.pragma("journal_mode")
	if err != nil {
		return err
	}
	if !strings.EqualFold(mode, "wal") {
		return fmt.Errorf("journal_mode is %q, WAL required", mode)
	}
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return s.migrate(ctx)
}

// migrate applies each pending migration in its own transaction, bumping
// user_version with it so an interrupted upgrade resumes where it stopped.
func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, m.stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("set user_version %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		version = m.version
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Query executes a read-only query and returns the resulting rows.
// Callers are responsible for closing the returned rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// pragma reads the current value of a pragma.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to query %s: %w", name, err)
	}
	return value, nil
}
