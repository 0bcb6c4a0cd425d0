package miner

import (
	"fmt"

	"mdr/internal/htmltree"
)

// tableRowTag is never exploded into per-child records by findRecords1:
// the cells of a table row belong together.
const tableRowTag = "tr"

// findDataRecords turns every discovered data region into data records.
//
// The union of all region sets is processed in a deterministic sorted order
// (Go map iteration would reorder output between runs). Each region's gnodes
// are dispatched by size: size 1 goes through findRecords1, larger gnodes
// through findRecordsN.
func (m *Miner) findDataRecords() error {
	all := make(regionSet)
	for _, rs := range m.regions {
		all.union(rs)
	}

	for _, dr := range sortedRegions(all) {
		for _, gn := range dr.GNodes() {
			var err error
			if dr.GNodeSize == 1 {
				err = m.findRecords1(gn)
			} else {
				err = m.findRecordsN(gn)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// findRecords1 handles a one-component generalized node addressing a single
// sibling v.
//
// If v's own size-1 child scores are all at or below the record threshold and
// v is not a table row, each child of v becomes its own record. If v has no
// size-1 score table at all, the gnode contributes nothing. Otherwise the
// gnode itself is one record.
//
// The "all similar" test deliberately checks only the chained adjacent-pair
// scores, not every pairwise combination.
func (m *Miner) findRecords1(gn GNode) error {
	parent, err := m.index.Resolve(gn.Parent)
	if err != nil {
		return err
	}

	children := htmltree.ElementChildren(parent)
	if gn.Start >= len(children) {
		return fmt.Errorf("miner: gnode start %d exceeds %d children of %s", gn.Start, len(children), gn.Parent)
	}
	node := children[gn.Start]
	nodeID := m.index.Identify(node)

	childScores, ok := m.distances[nodeID][1]
	if !ok {
		return nil
	}

	allSimilar := true
	for _, score := range childScores {
		if score > m.cfg.RecordThreshold1 {
			allSimilar = false
			break
		}
	}

	if allSimilar && htmltree.Tag(node) != tableRowTag {
		for i := range htmltree.ElementChildren(node) {
			m.records = append(m.records, DataRecord{{Parent: nodeID, Start: i, End: i + 1}})
		}
		return nil
	}

	m.records = append(m.records, DataRecord{gn})
	return nil
}

// findRecordsN handles a generalized node of m sibling nodes.
//
// When every one of the m nodes has the same number of children, every node
// has a size-1 score table, and every score in those tables passes the
// record threshold, the i-th children of all m nodes together form one
// record each, spanning disjoint subtrees. Otherwise the whole gnode is a
// single record.
func (m *Miner) findRecordsN(gn GNode) error {
	parent, err := m.index.Resolve(gn.Parent)
	if err != nil {
		return err
	}

	children := htmltree.ElementChildren(parent)
	if gn.End > len(children) {
		return fmt.Errorf("miner: gnode [%d,%d) exceeds %d children of %s", gn.Start, gn.End, len(children), gn.Parent)
	}
	nodes := children[gn.Start:gn.End]

	childCount := -1
	sameCounts := true
	allSimilar := true

	for _, node := range nodes {
		n := len(htmltree.ElementChildren(node))
		if childCount == -1 {
			childCount = n
		} else if n != childCount {
			sameCounts = false
		}

		scores, ok := m.distances[m.index.Identify(node)][1]
		if !ok {
			allSimilar = false
			continue
		}
		for _, score := range scores {
			if score > m.cfg.RecordThresholdN {
				allSimilar = false
				break
			}
		}
	}

	if !(sameCounts && allSimilar) {
		m.records = append(m.records, DataRecord{gn})
		return nil
	}

	for i := 0; i < childCount; i++ {
		rec := make(DataRecord, 0, len(nodes))
		for _, node := range nodes {
			rec = append(rec, GNode{Parent: m.index.Identify(node), Start: i, End: i + 1})
		}
		m.records = append(m.records, rec)
	}
	return nil
}
