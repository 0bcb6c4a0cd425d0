package sqlite

import (
	"context"
	"strings"
	"testing"

	"mdr/internal/storage"
)

func sampleRows() []storage.RecordRow {
	return []storage.RecordRow{
		{RecordIndex: 0, GNodeIndex: 0, ParentID: "li-00000", StartIndex: 0, EndIndex: 1, Content: "<span>a</span>"},
		{RecordIndex: 0, GNodeIndex: 1, ParentID: "li-00001", StartIndex: 0, EndIndex: 1, Content: "<span>b</span>"},
		{RecordIndex: 1, GNodeIndex: 0, ParentID: "li-00000", StartIndex: 1, EndIndex: 2, Content: "<span>c</span>"},
	}
}

func TestBuildInsertSQL(t *testing.T) {
	t.Parallel()

	query, args := buildInsertSQL("run-1", sampleRows())

	if !strings.HasPrefix(query, "INSERT OR IGNORE INTO mined_records ") {
		t.Fatalf("unexpected query prefix: %s", query)
	}
	if got := strings.Count(query, "(?, ?, ?, ?, ?, ?, ?)"); got != 3 {
		t.Fatalf("expected 3 value tuples, got %d in %s", got, query)
	}
	if len(args) != 21 {
		t.Fatalf("expected 21 args, got %d", len(args))
	}
	// Every row leads with the run id.
	for i := 0; i < len(args); i += 7 {
		if args[i] != "run-1" {
			t.Fatalf("arg %d: expected run id, got %v", i, args[i])
		}
	}
}

// TestRepo_InMemoryRoundTrip exercises schema creation, insert and the
// INSERT OR IGNORE idempotency against a throwaway in-memory database.
func TestRepo_InMemoryRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo, err := New(ctx, storage.Config{Kind: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	// EnsureSchema must be idempotent.
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema (second): %v", err)
	}

	n, err := repo.InsertRecords(ctx, "run-1", sampleRows())
	if err != nil {
		t.Fatalf("InsertRecords: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows inserted, got %d", n)
	}

	// Re-running the same run id writes nothing new.
	n, err = repo.InsertRecords(ctx, "run-1", sampleRows())
	if err != nil {
		t.Fatalf("InsertRecords (rerun): %v", err)
	}
	if n != 0 {
		t.Fatalf("expected rerun to be ignored, got %d rows", n)
	}

	// A different run id is independent.
	n, err = repo.InsertRecords(ctx, "run-2", sampleRows())
	if err != nil {
		t.Fatalf("InsertRecords (run-2): %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows for the new run, got %d", n)
	}
}

func TestInsertRecords_EmptyRows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo, err := New(ctx, storage.Config{Kind: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	n, err := repo.InsertRecords(ctx, "run-empty", nil)
	if err != nil {
		t.Fatalf("InsertRecords: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no rows, got %d", n)
	}
}
