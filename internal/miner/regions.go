package miner

import (
	"golang.org/x/net/html"

	"mdr/internal/htmltree"
	"mdr/internal/nodeindex"
)

// findDataRegions derives each node's data regions from its distance table
// and composes them up the tree.
//
// Every node at or above the minimum depth first gets its own regions from
// identifyDataRegions. Then, walking the tree bottom-up, each such node
// absorbs the regions of children that are not already covered by one of its
// own regions. Nodes below the minimum depth neither detect nor aggregate;
// their descendants' region sets simply stay where they were found.
func (m *Miner) findDataRegions(root *html.Node) {
	type entry struct {
		id       nodeindex.ID
		depth    int
		children []nodeindex.ID
	}

	// Pre-order flattening; reversed, it yields children before parents.
	type frame struct {
		node  *html.Node
		depth int
	}
	var order []entry

	stack := []frame{{node: root, depth: 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		id := m.index.Identify(f.node)
		children := htmltree.ElementChildren(f.node)

		e := entry{id: id, depth: f.depth, children: make([]nodeindex.ID, len(children))}
		for i, c := range children {
			e.children[i] = m.index.Identify(c)
		}
		order = append(order, e)

		if f.depth >= m.cfg.MinimumDepth {
			m.regions[id] = identifyDataRegions(
				0, id, len(children), m.distances[id],
				m.cfg.RegionThreshold, m.cfg.MaxWindow,
			)
		}

		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: children[i], depth: f.depth + 1})
		}
	}

	// Bottom-up composition: by the time a parent is processed, every child's
	// set is final.
	for i := len(order) - 1; i >= 0; i-- {
		e := order[i]
		if e.depth < m.cfg.MinimumDepth {
			continue
		}
		// Coverage is checked against the node's own regions only; child
		// contributions are merged in afterwards so one child's regions can
		// never mask another's.
		own := m.regions[e.id]
		temp := make(regionSet)
		for childIdx, childID := range e.children {
			temp.union(m.uncoveredRegions(own, childIdx, childID))
		}
		own.union(temp)
	}
}

// uncoveredRegions returns the child's region set, unless the child itself
// sits inside one of the parent's own regions, in which case the child's
// regions are already represented at the parent level and contribute nothing.
func (m *Miner) uncoveredRegions(parentOwn regionSet, childIdx int, childID nodeindex.ID) regionSet {
	for r := range parentOwn {
		if r.Contains(childIdx) {
			return nil
		}
	}
	return m.regions[childID]
}

// identifyDataRegions finds the maximal data regions at or after startIndex
// among the parent's children, given the parent's distance table.
//
// For each gnode size and each starting phase within that size, the scan
// walks the chained pair scores left to right: a score at or below the
// threshold opens a region (two gnodes) or extends the open one by a gnode;
// a score above the threshold closes an open region for good, while gaps
// before the first hit are skipped. After each phase the candidate replaces
// the best found so far only when it covers strictly more nodes AND starts at
// or before the best's start; a later-starting, larger run does not win.
// This tie-break is the published heuristic, kept verbatim.
//
// When the best region stops short of the last child, scanning resumes right
// after it, concatenating non-overlapping regions left to right.
//
// The function is pure: identical inputs always yield the identical set.
func identifyDataRegions(
	startIndex int,
	parent nodeindex.ID,
	nChildren int,
	table DistanceTable,
	threshold float64,
	maxWindow int,
) regionSet {
	out := make(regionSet)
	if len(table) == 0 {
		return out
	}

	for {
		var maxDR, curDR DataRegion

		for size := 1; size <= maxWindow; size++ {
			for first := startIndex; first < startIndex+size; first++ {
				started := false

				for last := first + size; last+size <= nChildren; last += size {
					pair := GNodePair{
						Left:  GNode{Parent: parent, Start: last - size, End: last},
						Right: GNode{Parent: parent, Start: last, End: last + size},
					}
					score, ok := table.Score(size, pair)

					if ok && score <= threshold {
						if !started {
							curDR = binaryRegionEndingAt(pair.Right)
							started = true
						} else {
							curDR = curDR.extendOneGNode()
						}
						continue
					}

					// A pair missing from the table cannot be similar.
					if started {
						break
					}
				}

				coversMore := curDR.NodesCovered > maxDR.NodesCovered
				startsAtOrBefore := maxDR.empty() || curDR.FirstGNodeStart <= maxDR.FirstGNodeStart
				if coversMore && startsAtOrBefore {
					maxDR = curDR
				}
			}
		}

		if maxDR.empty() {
			return out
		}
		out.add(maxDR)

		if maxDR.LastCoveredIndex() < nChildren-1 {
			// Continue scanning after the region we just fixed.
			startIndex = maxDR.LastCoveredIndex() + 1
			continue
		}
		return out
	}
}
