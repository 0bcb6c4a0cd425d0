// Command minerecords mines repeated data records (product cards, result
// rows, listings) out of an HTML page using structural repetition only, with
// no selectors, templates, or prior knowledge of the page.
//
// Usage (stdin):
//
//	cat page.html | minerecords
//
// Usage (fetch URL):
//
//	minerecords -url "https://example.com/listing"
//
// Usage (file, text output, persisted to SQLite):
//
//	minerecords -file page.html -text -store sqlite -dsn records.db
//
// Output is a JSON array with one element per mined record; each element
// lists the record's generalized-node spans with their parent identity,
// sibling index range, and serialized content.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"mdr/internal/htmltree"
	"mdr/internal/metrics"
	"mdr/internal/metrics/datadog"
	"mdr/internal/miner"
	"mdr/internal/storage"

	_ "mdr/internal/storage/mssql"
	_ "mdr/internal/storage/postgres"
	_ "mdr/internal/storage/sqlite"
)

func main() {
	os.Exit(run(
		context.Background(),
		os.Args[1:],
		os.Stdin,
		os.Stdout,
		os.Stderr,
		http.DefaultClient,
	))
}

// gnodeOut is one generalized-node span of one record in the JSON output.
type gnodeOut struct {
	Parent  string `json:"parent"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Content string `json:"content"`
}

// run is split out from main so the command can be unit tested without
// spawning an OS process.
//
// It returns a Unix-style exit code:
//   - 0 for success
//   - 2 for usage/config errors
//   - 1 for operational/runtime errors
func run(
	ctx context.Context,
	args []string,
	stdin io.Reader,
	stdout io.Writer,
	stderr io.Writer,
	httpClient *http.Client,
) int {
	fs := flag.NewFlagSet("minerecords", flag.ContinueOnError)
	fs.SetOutput(stderr)

	urlFlag := fs.String("url", "", "Fetch HTML from URL instead of stdin")
	fileFlag := fs.String("file", "", "Read HTML from a file instead of stdin")
	timeout := fs.Duration("timeout", 20*time.Second, "Timeout for -url fetch")
	rootSel := fs.String("root", "html", "CSS selector for the mining root element")

	maxWindow := fs.Int("max-window", miner.DefaultMaxWindow, "Largest generalized-node width considered")
	regionTh := fs.Float64("region-threshold", miner.DefaultRegionThreshold, "Similarity threshold for region detection")
	recordTh1 := fs.Float64("record-threshold-1", miner.DefaultRecordThreshold, "Similarity threshold for splitting size-1 gnodes")
	recordThN := fs.Float64("record-threshold-n", miner.DefaultRecordThreshold, "Similarity threshold for splitting size-n gnodes")
	minDepth := fs.Int("min-depth", miner.DefaultMinimumDepth, "Shallowest depth analyzed (mining root is depth 0)")

	textOut := fs.Bool("text", false, "Emit trimmed visible text instead of HTML in record content")

	storeKind := fs.String("store", "", "Persist records to a backend: sqlite, postgres or mssql")
	dsn := fs.String("dsn", "", "DSN for -store")
	runID := fs.String("run-id", "", "Run identifier for persisted records (default: derived from current time)")

	ddMetrics := fs.Bool("dd-metrics", false, "Submit run metrics to Datadog")
	ddTags := fs.String("dd-tags", "", "Extra Datadog tags, comma-separated (e.g. env:prod,service:mdr)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	var sink metrics.Backend = metrics.Nop{}
	if *ddMetrics {
		b, err := datadog.NewBackend(ctx, datadog.Options{
			Tags: datadog.ParseTagsCSV(*ddTags),
		})
		if err != nil {
			fmt.Fprintf(stderr, "datadog metrics init: %v\n", err)
			return 2
		}
		sink = b
		defer func() { _ = sink.Close() }()
	}

	cfg := miner.Config{
		MaxWindow:        *maxWindow,
		RegionThreshold:  *regionTh,
		RecordThreshold1: *recordTh1,
		RecordThresholdN: *recordThN,
		MinimumDepth:     *minDepth,
	}
	cfg.Observer = phaseTimer(sink)

	m, err := miner.New(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 2
	}

	loader := htmltree.NewLoader(httpClient, *timeout)
	src, err := loader.Load(ctx, htmltree.Input{
		URL:   *urlFlag,
		Path:  *fileFlag,
		Stdin: stdin,
	})
	if err != nil {
		fmt.Fprintf(stderr, "load html: %v\n", err)
		return 1
	}

	doc, err := htmltree.Parse(src)
	if err != nil {
		fmt.Fprintf(stderr, "parse html: %v\n", err)
		return 1
	}
	root, err := doc.Root(*rootSel)
	if err != nil {
		fmt.Fprintf(stderr, "mining root: %v\n", err)
		return 1
	}

	records, err := m.Run(root)
	if err != nil {
		sink.IncCounter(metrics.RunsTotal, 1, metrics.Labels{"status": "error"})
		fmt.Fprintf(stderr, "mine: %v\n", err)
		return 1
	}
	sink.IncCounter(metrics.RunsTotal, 1, metrics.Labels{"status": "ok"})
	reportCounts(sink, m, records)

	out, rows, err := renderRecords(m, records, *textOut)
	if err != nil {
		fmt.Fprintf(stderr, "render records: %v\n", err)
		return 1
	}

	if *storeKind != "" {
		id := *runID
		if id == "" {
			id = fmt.Sprintf("run-%d", time.Now().UTC().UnixNano())
		}
		if err := persist(ctx, storage.Config{Kind: *storeKind, DSN: *dsn}, id, rows); err != nil {
			fmt.Fprintf(stderr, "store records: %v\n", err)
			return 1
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "encode json: %v\n", err)
		return 1
	}
	return 0
}

// phaseTimer adapts the miner's phase-boundary hook to duration histograms:
// each callback closes the span opened by the previous one.
func phaseTimer(sink metrics.Backend) func(miner.Phase) {
	var (
		current miner.Phase
		started time.Time
	)
	return func(p miner.Phase) {
		now := time.Now()
		if current != "" {
			sink.ObserveHistogram(metrics.PhaseDurationSeconds, now.Sub(started).Seconds(), metrics.Labels{
				"phase": string(current),
			})
		}
		current, started = p, now
	}
}

// reportCounts publishes region and record counters for a finished run.
func reportCounts(sink metrics.Backend, m *miner.Miner, records []miner.DataRecord) {
	for _, r := range m.Regions() {
		sink.IncCounter(metrics.RegionsTotal, 1, metrics.Labels{
			"gnode_size": fmt.Sprintf("%d", r.GNodeSize),
		})
	}
	for _, rec := range records {
		sink.IncCounter(metrics.RecordsTotal, 1, metrics.Labels{"kind": recordKind(rec)})
	}
}

// recordKind classifies a record for metrics:
//   - "spanning": gnodes from several parents (the non-contiguous case)
//   - "single": one gnode covering one sibling
//   - "gnode": one gnode covering several siblings
func recordKind(rec miner.DataRecord) string {
	if len(rec) > 1 {
		return "spanning"
	}
	if rec[0].Size() == 1 {
		return "single"
	}
	return "gnode"
}

// renderRecords resolves every record's gnodes to concrete nodes and builds
// both the JSON output and the storage rows in one pass.
func renderRecords(m *miner.Miner, records []miner.DataRecord, textOut bool) ([][]gnodeOut, []storage.RecordRow, error) {
	out := make([][]gnodeOut, 0, len(records))
	var rows []storage.RecordRow

	for ri, rec := range records {
		spans, err := m.RecordNodes(rec)
		if err != nil {
			return nil, nil, err
		}

		item := make([]gnodeOut, 0, len(rec))
		for gi, gn := range rec {
			content := htmltree.SpanHTML(spans[gi])
			if textOut {
				content = htmltree.SpanText(spans[gi])
			}
			item = append(item, gnodeOut{
				Parent:  string(gn.Parent),
				Start:   gn.Start,
				End:     gn.End,
				Content: content,
			})
			rows = append(rows, storage.RecordRow{
				RecordIndex: ri,
				GNodeIndex:  gi,
				ParentID:    string(gn.Parent),
				StartIndex:  gn.Start,
				EndIndex:    gn.End,
				Content:     content,
			})
		}
		out = append(out, item)
	}
	return out, rows, nil
}

// persist writes one run's rows through the configured repository.
func persist(ctx context.Context, cfg storage.Config, runID string, rows []storage.RecordRow) error {
	repo, err := storage.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	if _, err := repo.InsertRecords(ctx, runID, rows); err != nil {
		return err
	}
	return nil
}
