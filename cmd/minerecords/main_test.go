package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

const listingDoc = `<html><body><div>
<ul>
<li><span>widget</span><span>9.99</span></li>
<li><span>gadget</span><span>3.50</span></li>
<li><span>gizmo</span><span>7.25</span></li>
</ul>
</div></body></html>`

// mineArgs are the thresholds that treat structurally identical siblings as
// similar (every score is at most 1).
var mineArgs = []string{"-region-threshold", "1", "-record-threshold-1", "1"}

func runCLI(t *testing.T, args []string, stdin string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr, nil)
	return code, stdout.String(), stderr.String()
}

func TestRun_MinesStdin(t *testing.T) {
	t.Parallel()

	code, stdout, stderr := runCLI(t, mineArgs, listingDoc)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr: %s)", code, stderr)
	}

	var records [][]gnodeOut
	if err := json.Unmarshal([]byte(stdout), &records); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if len(records) != 6 {
		t.Fatalf("expected 6 records (two spans per item), got %d: %s", len(records), stdout)
	}
	first := records[0][0]
	if first.Parent != "li-00000" || first.Start != 0 || first.End != 1 {
		t.Fatalf("unexpected first record gnode: %+v", first)
	}
	if first.Content != "<span>widget</span>" {
		t.Fatalf("expected raw HTML content, got %q", first.Content)
	}
}

func TestRun_TextOutput(t *testing.T) {
	t.Parallel()

	code, stdout, stderr := runCLI(t, append([]string{"-text"}, mineArgs...), listingDoc)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr: %s)", code, stderr)
	}

	var records [][]gnodeOut
	if err := json.Unmarshal([]byte(stdout), &records); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if got := records[0][0].Content; got != "widget" {
		t.Fatalf("expected visible text only, got %q", got)
	}
}

func TestRun_NoRepetitionEmitsEmptyArray(t *testing.T) {
	t.Parallel()

	code, stdout, _ := runCLI(t, nil, `<html><body><p>once</p></body></html>`)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if strings.TrimSpace(stdout) != "[]" {
		t.Fatalf("expected an empty JSON array, got %q", stdout)
	}
}

func TestRun_UnknownFlag(t *testing.T) {
	t.Parallel()

	code, _, stderr := runCLI(t, []string{"-definitely-not-a-flag"}, "")
	if code != 2 {
		t.Fatalf("expected exit 2 for a flag error, got %d (stderr: %s)", code, stderr)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Parallel()

	code, _, stderr := runCLI(t, []string{"-max-window", "0"}, listingDoc)
	if code != 2 {
		t.Fatalf("expected exit 2 for an invalid config, got %d", code)
	}
	if !strings.Contains(stderr, "config") {
		t.Fatalf("stderr should mention the config error, got %q", stderr)
	}
}

func TestRun_MissingFile(t *testing.T) {
	t.Parallel()

	code, _, _ := runCLI(t, []string{"-file", filepath.Join(t.TempDir(), "absent.html")}, "")
	if code != 1 {
		t.Fatalf("expected exit 1 for a missing file, got %d", code)
	}
}

func TestRun_RootSelectorWithoutMatch(t *testing.T) {
	t.Parallel()

	code, _, stderr := runCLI(t, []string{"-root", "#missing"}, listingDoc)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr, "matched no element") {
		t.Fatalf("stderr should explain the selector failure, got %q", stderr)
	}
}

func TestRun_UnsupportedStore(t *testing.T) {
	t.Parallel()

	code, _, stderr := runCLI(t, append([]string{"-store", "oracle"}, mineArgs...), listingDoc)
	if code != 1 {
		t.Fatalf("expected exit 1 for an unsupported store, got %d", code)
	}
	if !strings.Contains(stderr, "unsupported kind") {
		t.Fatalf("stderr should name the unsupported kind, got %q", stderr)
	}
}

// TestRun_PersistsToSQLite drives the whole pipeline including persistence,
// then inspects the database file directly.
func TestRun_PersistsToSQLite(t *testing.T) {
	t.Parallel()

	dsn := filepath.Join(t.TempDir(), "records.db")
	args := append([]string{"-store", "sqlite", "-dsn", dsn, "-run-id", "test-run"}, mineArgs...)

	code, _, stderr := runCLI(t, args, listingDoc)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr: %s)", code, stderr)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM mined_records WHERE run_id = ?", "test-run").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 6 {
		t.Fatalf("expected 6 persisted rows, got %d", n)
	}
}
