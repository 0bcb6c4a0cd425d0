package miner

import (
	"golang.org/x/net/html"

	"mdr/internal/htmltree"
	"mdr/internal/nodeindex"
)

// computeDistances walks the tree in pre-order, depth-first, and records a
// distance table for every node at or below which analysis is allowed.
//
// Nodes shallower than the minimum depth get a nil table: their children are
// not compared, but the walk still descends so deeper nodes get their own
// gate check. The walk uses an explicit stack so pathological nesting cannot
// exhaust the call stack.
func (m *Miner) computeDistances(root *html.Node) {
	type frame struct {
		node  *html.Node
		depth int
	}

	stack := []frame{{node: root, depth: 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		id := m.index.Identify(f.node)
		children := htmltree.ElementChildren(f.node)

		if f.depth >= m.cfg.MinimumDepth {
			m.distances[id] = m.compareCombinations(children, id)
		} else {
			m.distances[id] = nil
		}

		// Push right-to-left so children pop left-to-right, preserving the
		// per-tag identity sequence of a plain pre-order recursion.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: children[i], depth: f.depth + 1})
		}
	}
}

// compareCombinations scores every valid pair of equal-width adjacent sibling
// windows over children.
//
// For each window width (gnode size) up to MaxWindow and each starting phase
// within that width, the scan is chained: after comparing (left, right), the
// right window becomes the left window of the next comparison. The result
// maps {gnode size -> {pair -> score}}; widths for which no valid pair exists
// are omitted entirely.
func (m *Miner) compareCombinations(children []*html.Node, parent nodeindex.ID) DistanceTable {
	table := make(DistanceTable)
	if len(children) == 0 {
		return table
	}
	n := len(children)

	for startingTag := 1; startingTag <= m.cfg.MaxWindow; startingTag++ {
		for size := startingTag; size <= m.cfg.MaxWindow; size++ {
			// A first pair of windows at this width/phase must fit entirely.
			if startingTag+2*size-1 > n {
				continue
			}

			left := startingTag - 1
			for right := startingTag + size - 1; right < n; right += size {
				if right+size > n {
					continue
				}

				lg := GNode{Parent: parent, Start: left, End: right}
				rg := GNode{Parent: parent, Start: right, End: right + size}

				score := m.ratio(
					htmltree.SpanHTML(children[lg.Start:lg.End]),
					htmltree.SpanHTML(children[rg.Start:rg.End]),
				)
				table.record(size, GNodePair{Left: lg, Right: rg}, score)

				// Chained, not all-pairs: the right window just scored is the
				// left window of the next comparison.
				left = right
			}
		}
	}

	return table
}
