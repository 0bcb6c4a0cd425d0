// Package sqlite implements storage.Repository for SQLite via the pure-Go
// modernc.org/sqlite driver, which keeps the CLI free of cgo.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"mdr/internal/storage"
)

// Repo implements storage.Repository for SQLite.
//
// Timestamps are stored as RFC3339 strings via the datetime('now') default;
// SQLite has no native timestamp type and TEXT round-trips reliably.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

// New opens (or creates) the SQLite database at cfg.DSN and validates
// connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

// Close releases the database handle.
func (r *Repo) Close() { _ = r.db.Close() }

const createTableSQL = `CREATE TABLE IF NOT EXISTS mined_records (
	run_id       TEXT    NOT NULL,
	record_index INTEGER NOT NULL,
	gnode_index  INTEGER NOT NULL,
	parent_id    TEXT    NOT NULL,
	start_index  INTEGER NOT NULL,
	end_index    INTEGER NOT NULL,
	content      TEXT    NOT NULL,
	mined_at     TEXT    NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (run_id, record_index, gnode_index)
)`

// EnsureSchema creates the mined_records table if it does not exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create table mined_records: %w", err)
	}
	return nil
}

// InsertRecords bulk-inserts one run's rows.
//
// "INSERT OR IGNORE" makes re-running the same runID idempotent: the primary
// key covers (run_id, record_index, gnode_index).
func (r *Repo) InsertRecords(ctx context.Context, runID string, rows []storage.RecordRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query, args := buildInsertSQL(runID, rows)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert mined_records: %w", err)
	}
	return res.RowsAffected()
}

// buildInsertSQL constructs a single multi-VALUES INSERT and its args.
// Pure and deterministic so placeholder layout is unit-testable without a
// database.
func buildInsertSQL(runID string, rows []storage.RecordRow) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT OR IGNORE INTO mined_records ")
	b.WriteString("(run_id, record_index, gnode_index, parent_id, start_index, end_index, content) VALUES ")

	args := make([]any, 0, len(rows)*7)
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, runID, row.RecordIndex, row.GNodeIndex, row.ParentID, row.StartIndex, row.EndIndex, row.Content)
	}

	return b.String(), args
}
