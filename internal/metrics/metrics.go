// Package metrics defines the minimal metrics surface the mining pipeline
// emits to. Backends live in subpackages; the core never depends on a
// concrete vendor client.
package metrics

// Labels attaches low-cardinality dimensions to a metric observation.
type Labels map[string]string

// Backend receives metric observations.
//
// Implementations must tolerate unknown metric names (ignore them) so the
// emitting code can evolve without breaking older backends.
type Backend interface {
	// IncCounter adds delta to a named counter. Non-positive deltas are
	// ignored.
	IncCounter(name string, delta float64, labels Labels)

	// ObserveHistogram records one sample of a named distribution. Negative
	// values are ignored.
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush submits buffered observations. Safe to call at any time.
	Flush() error

	// Close stops background work and performs a final Flush.
	Close() error
}

// Nop is a Backend that discards everything. It is the default when no
// metrics sink is configured.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }
func (Nop) Close() error                             { return nil }

var _ Backend = Nop{}

// Metric names emitted by the mining pipeline.
const (
	// RunsTotal counts completed mining runs, labeled status=ok|error.
	RunsTotal = "mdr_runs_total"

	// RegionsTotal counts discovered data regions, labeled gnode_size.
	RegionsTotal = "mdr_regions_total"

	// RecordsTotal counts extracted data records, labeled kind=single|gnode|spanning.
	RecordsTotal = "mdr_records_total"

	// PhaseDurationSeconds is the per-phase wall time, labeled phase.
	PhaseDurationSeconds = "mdr_phase_duration_seconds"
)
