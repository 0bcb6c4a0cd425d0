// Package postgres implements storage.Repository for Postgres on pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"mdr/internal/storage"
)

// Repo implements storage.Repository for Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

// New creates a connection pool for cfg.DSN. Pool construction validates the
// DSN; connectivity errors surface on first use.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

// Close closes the connection pool.
func (r *Repo) Close() { r.pool.Close() }

const createTableSQL = `CREATE TABLE IF NOT EXISTS mined_records (
	run_id       TEXT        NOT NULL,
	record_index INTEGER     NOT NULL,
	gnode_index  INTEGER     NOT NULL,
	parent_id    TEXT        NOT NULL,
	start_index  INTEGER     NOT NULL,
	end_index    INTEGER     NOT NULL,
	content      TEXT        NOT NULL,
	mined_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, record_index, gnode_index)
)`

// EnsureSchema creates the mined_records table if it does not exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create table mined_records: %w", err)
	}
	return nil
}

// InsertRecords bulk-inserts one run's rows.
//
// ON CONFLICT DO NOTHING makes re-running the same runID idempotent without
// failing on the primary key.
func (r *Repo) InsertRecords(ctx context.Context, runID string, rows []storage.RecordRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query, args := buildInsertSQL(runID, rows)
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert mined_records: %w", err)
	}
	return cmd.RowsAffected(), nil
}

// buildInsertSQL constructs a single multi-VALUES INSERT with numbered
// placeholders and its args. Pure and deterministic so placeholder numbering
// is unit-testable without a database.
func buildInsertSQL(runID string, rows []storage.RecordRow) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO mined_records ")
	b.WriteString("(run_id, record_index, gnode_index, parent_id, start_index, end_index, content) VALUES ")

	args := make([]any, 0, len(rows)*7)
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		base := i * 7
		b.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		args = append(args, runID, row.RecordIndex, row.GNodeIndex, row.ParentID, row.StartIndex, row.EndIndex, row.Content)
	}

	b.WriteString(" ON CONFLICT (run_id, record_index, gnode_index) DO NOTHING")
	return b.String(), args
}
