// Package mssql implements storage.Repository for Microsoft SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"mdr/internal/storage"
)

// Repo implements storage.Repository for SQL Server.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

// New opens a connection with the "sqlserver" driver and validates
// connectivity via PingContext.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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
func (r *Repo) Close() {
	if r == nil || r.db == nil {
		return
	}
	_ = r.db.Close()
}

// SQL Server has no CREATE TABLE IF NOT EXISTS; the OBJECT_ID guard is the
// standard idempotent equivalent.
const createTableSQL = `IF OBJECT_ID('mined_records', 'U') IS NULL
CREATE TABLE mined_records (
	run_id       NVARCHAR(128)  NOT NULL,
	record_index INT            NOT NULL,
	gnode_index  INT            NOT NULL,
	parent_id    NVARCHAR(256)  NOT NULL,
	start_index  INT            NOT NULL,
	end_index    INT            NOT NULL,
	content      NVARCHAR(MAX)  NOT NULL,
	mined_at     DATETIMEOFFSET NOT NULL DEFAULT SYSDATETIMEOFFSET(),
	CONSTRAINT pk_mined_records PRIMARY KEY (run_id, record_index, gnode_index)
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
// Idempotency for re-running the same runID uses a NOT EXISTS guard per run:
// if any row for runID is already present, the insert is skipped entirely
// rather than failing on the primary key.
func (r *Repo) InsertRecords(ctx context.Context, runID string, rows []storage.RecordRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	var exists int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM mined_records WHERE run_id = @p1", runID,
	).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check run %s: %w", runID, err)
	}
	if exists > 0 {
		return 0, nil
	}

	query, args := buildInsertSQL(runID, rows)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert mined_records: %w", err)
	}
	return res.RowsAffected()
}

// buildInsertSQL constructs a single multi-VALUES INSERT with @pN
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
		b.WriteString(fmt.Sprintf("(@p%d, @p%d, @p%d, @p%d, @p%d, @p%d, @p%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		args = append(args, runID, row.RecordIndex, row.GNodeIndex, row.ParentID, row.StartIndex, row.EndIndex, row.Content)
	}

	return b.String(), args
}
