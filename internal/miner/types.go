package miner

import (
	"sort"

	"mdr/internal/nodeindex"
)

// GNode (generalized node) is a contiguous half-open range [Start, End) of
// sibling indices under Parent, treated as one comparison unit.
//
// Invariant: End > Start >= 0.
type GNode struct {
	Parent nodeindex.ID `json:"parent"`
	Start  int          `json:"start"`
	End    int          `json:"end"`
}

// Size returns the number of sibling nodes the gnode spans. Always >= 1.
func (g GNode) Size() int { return g.End - g.Start }

// GNodePair is an ordered pair of equal-size, adjacent gnodes under the same
// parent. It keys the score recorded for the pair in a DistanceTable.
type GNodePair struct {
	Left  GNode
	Right GNode
}

// DistanceTable holds, for one parent node, the pair scores recorded per
// gnode size: {gnode size -> {pair -> score}}.
//
// A nil DistanceTable marks a node below the minimum depth whose children
// were never analyzed; that is distinct from a non-nil empty table, which
// means the children were analyzed and no valid pair existed.
type DistanceTable map[int]map[GNodePair]float64

// Score looks up the recorded score for a pair at the given gnode size.
func (t DistanceTable) Score(size int, pair GNodePair) (float64, bool) {
	m, ok := t[size]
	if !ok {
		return 0, false
	}
	s, ok := m[pair]
	return s, ok
}

func (t DistanceTable) record(size int, pair GNodePair, score float64) {
	m := t[size]
	if m == nil {
		m = make(map[GNodePair]float64)
		t[size] = m
	}
	m[pair] = score
}

// DataRegion is a maximal run of adjacent, mutually similar, equal-size
// gnodes under one parent.
//
// Invariants:
//   - NodesCovered is a positive multiple of GNodeSize.
//   - NGnodes() = NodesCovered / GNodeSize >= 2.
//   - Regions of the same parent never overlap.
type DataRegion struct {
	Parent          nodeindex.ID `json:"parent"`
	GNodeSize       int          `json:"gnode_size"`
	FirstGNodeStart int          `json:"first_gnode_start_index"`
	NodesCovered    int          `json:"n_nodes_covered"`
}

// empty reports whether the region is the zero "no region found" marker.
func (r DataRegion) empty() bool { return r.NodesCovered == 0 }

// NGnodes returns the number of gnodes the region is made of.
func (r DataRegion) NGnodes() int { return r.NodesCovered / r.GNodeSize }

// LastCoveredIndex returns the sibling index of the last node in the region.
func (r DataRegion) LastCoveredIndex() int {
	return r.FirstGNodeStart + r.NodesCovered - 1
}

// Contains reports whether the sibling index falls inside the region.
func (r DataRegion) Contains(childIndex int) bool {
	return r.FirstGNodeStart <= childIndex && childIndex <= r.LastCoveredIndex()
}

// GNodes returns the region's constituent gnodes in left-to-right order.
func (r DataRegion) GNodes() []GNode {
	out := make([]GNode, 0, r.NGnodes())
	for i := 0; i < r.NGnodes(); i++ {
		start := r.FirstGNodeStart + i*r.GNodeSize
		out = append(out, GNode{Parent: r.Parent, Start: start, End: start + r.GNodeSize})
	}
	return out
}

// binaryRegionEndingAt builds the two-gnode region whose second gnode is gn.
func binaryRegionEndingAt(gn GNode) DataRegion {
	size := gn.Size()
	return DataRegion{
		Parent:          gn.Parent,
		GNodeSize:       size,
		FirstGNodeStart: gn.Start - size,
		NodesCovered:    2 * size,
	}
}

// extendOneGNode returns the region grown by one more gnode on the right.
func (r DataRegion) extendOneGNode() DataRegion {
	r.NodesCovered += r.GNodeSize
	return r
}

// regionSet is a set of data regions. DataRegion is comparable, so regions
// discovered both at a child and again through its parent dedupe naturally.
type regionSet map[DataRegion]struct{}

func (s regionSet) add(r DataRegion)        { s[r] = struct{}{} }
func (s regionSet) union(other regionSet) {
	for r := range other {
		s[r] = struct{}{}
	}
}

// sortedRegions flattens a set into the deterministic order used by the
// record extractor: parent id, then first covered index, then gnode size.
func sortedRegions(s regionSet) []DataRegion {
	out := make([]DataRegion, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Parent != b.Parent {
			return a.Parent < b.Parent
		}
		if a.FirstGNodeStart != b.FirstGNodeStart {
			return a.FirstGNodeStart < b.FirstGNodeStart
		}
		if a.GNodeSize != b.GNodeSize {
			return a.GNodeSize < b.GNodeSize
		}
		return a.NodesCovered < b.NodesCovered
	})
	return out
}

// DataRecord is one mined record instance: an ordered, non-empty sequence of
// gnodes, possibly from different parents (the non-contiguous case).
type DataRecord []GNode
