// Package miner implements structural mining of repeated data records from a
// parsed HTML tree (the MDR algorithm, Liu/Grossman/Zhai 2003).
//
// A run has three phases:
//  1. distances: for every node deep enough, score every valid pair of
//     equal-width adjacent sibling windows ("generalized nodes").
//  2. regions: turn the per-node scores into maximal contiguous runs of
//     similar windows ("data regions") and compose them up the tree.
//  3. records: split every region's gnodes into the final data records.
//
// The engine never mutates the input tree; node identity lives in an
// auxiliary index.
package miner

import (
	"errors"
	"fmt"

	"golang.org/x/net/html"

	"mdr/internal/htmltree"
	"mdr/internal/nodeindex"
	"mdr/internal/similarity"
)

// Phase names the boundary points an Observer is called at.
type Phase string

const (
	PhaseDistances Phase = "distances"
	PhaseRegions   Phase = "regions"
	PhaseRecords   Phase = "records"
	PhaseDone      Phase = "done"
)

// ErrAlreadyRun is returned when a Miner that has produced output is run a
// second time. A Miner is consumed by one run; its retained state (distance
// tables, region sets) only describes that run's tree.
var ErrAlreadyRun = errors.New("miner: already run, create a new Miner")

// Miner executes one mining run and retains the per-phase state for staged
// inspection. Use Mine for the plain records-out entry point.
type Miner struct {
	cfg   Config
	ratio similarity.Ratio

	index     *nodeindex.Index
	distances map[nodeindex.ID]DistanceTable
	regions   map[nodeindex.ID]regionSet
	records   []DataRecord

	used bool
}

// New validates cfg and creates a Miner for a single run.
func New(cfg Config) (*Miner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ratio := cfg.Ratio
	if ratio == nil {
		ratio = similarity.LevenshteinRatio
	}

	return &Miner{
		cfg:       cfg,
		ratio:     ratio,
		index:     nodeindex.New(),
		distances: make(map[nodeindex.ID]DistanceTable),
		regions:   make(map[nodeindex.ID]regionSet),
	}, nil
}

// Mine runs the whole pipeline over the tree rooted at root and returns the
// mined records. root counts as depth 0 for the minimum-depth gate.
func Mine(root *html.Node, cfg Config) ([]DataRecord, error) {
	m, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return m.Run(root)
}

// Run executes the three phases over the tree rooted at root.
//
// Errors:
//   - ErrAlreadyRun if this Miner already produced output.
//   - A node index lookup failure, which indicates an internal invariant
//     violation, aborts the run.
//
// A document with no repeating structure (or shallower than the minimum
// depth) is not an error: Run returns an empty slice.
func (m *Miner) Run(root *html.Node) ([]DataRecord, error) {
	if m.used {
		return nil, ErrAlreadyRun
	}
	m.used = true

	m.observe(PhaseDistances)
	m.computeDistances(root)

	m.observe(PhaseRegions)
	m.findDataRegions(root)

	m.observe(PhaseRecords)
	if err := m.findDataRecords(); err != nil {
		return nil, err
	}

	m.observe(PhaseDone)
	return m.records, nil
}

func (m *Miner) observe(p Phase) {
	if m.cfg.Observer != nil {
		m.cfg.Observer(p)
	}
}

// Index exposes the node index so callers can resolve record gnodes back to
// concrete nodes.
func (m *Miner) Index() *nodeindex.Index { return m.index }

// Records returns the records produced by Run, in extraction order.
func (m *Miner) Records() []DataRecord { return m.records }

// DistanceTableFor returns the table computed for the node with the given id.
// The second result distinguishes "node was visited" from "unknown id"; a
// visited node below the minimum depth has a nil table.
func (m *Miner) DistanceTableFor(id nodeindex.ID) (DistanceTable, bool) {
	t, ok := m.distances[id]
	return t, ok
}

// Regions returns every data region discovered anywhere in the tree, in the
// deterministic order used by the record extractor.
func (m *Miner) Regions() []DataRegion {
	all := make(regionSet)
	for _, rs := range m.regions {
		all.union(rs)
	}
	return sortedRegions(all)
}

// RecordNodes resolves one record's gnodes to their concrete sibling
// subtree slices, one slice per gnode.
//
// Errors:
//   - A lookup failure from the node index (internal invariant violation).
//   - A gnode whose range exceeds its parent's children.
func (m *Miner) RecordNodes(rec DataRecord) ([][]*html.Node, error) {
	out := make([][]*html.Node, 0, len(rec))
	for _, gn := range rec {
		parent, err := m.index.Resolve(gn.Parent)
		if err != nil {
			return nil, err
		}
		children := htmltree.ElementChildren(parent)
		if gn.End > len(children) {
			return nil, fmt.Errorf("miner: gnode [%d,%d) exceeds %d children of %s",
				gn.Start, gn.End, len(children), gn.Parent)
		}
		out = append(out, children[gn.Start:gn.End])
	}
	return out, nil
}
