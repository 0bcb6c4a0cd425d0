package miner

import (
	"reflect"
	"testing"

	"mdr/internal/htmltree"
	"mdr/internal/nodeindex"
)

// TestFindRecords1_ExplodesSimilarChildren: when a node's own children are
// all mutually similar, each child becomes its own record.
func TestFindRecords1_ExplodesSimilarChildren(t *testing.T) {
	t.Parallel()

	body := parseBody(t, `<div><p>x</p><p>x</p><p>x</p></div>`)
	div := htmltree.ElementChildren(body)[0]

	m := newTestMiner(t, DefaultConfig())
	bodyID := m.index.Identify(body)
	divID := m.index.Identify(div)

	m.distances[divID] = DistanceTable{1: {
		sizePair(divID, 1, 1): 0.1,
		sizePair(divID, 1, 2): 0.1,
	}}

	if err := m.findRecords1(GNode{Parent: bodyID, Start: 0, End: 1}); err != nil {
		t.Fatalf("findRecords1: %v", err)
	}

	want := []DataRecord{
		{{Parent: divID, Start: 0, End: 1}},
		{{Parent: divID, Start: 1, End: 2}},
		{{Parent: divID, Start: 2, End: 3}},
	}
	if !reflect.DeepEqual(m.records, want) {
		t.Fatalf("expected %v, got %v", want, m.records)
	}
}

// TestFindRecords1_TableRowNeverExploded: a <tr> with mutually similar cells
// stays one record; its cells belong together.
func TestFindRecords1_TableRowNeverExploded(t *testing.T) {
	t.Parallel()

	body := parseBody(t, `<table><tbody><tr><td>a</td><td>a</td></tr></tbody></table>`)
	table := htmltree.ElementChildren(body)[0]
	tbody := htmltree.ElementChildren(table)[0]
	tr := htmltree.ElementChildren(tbody)[0]

	m := newTestMiner(t, DefaultConfig())
	tbodyID := m.index.Identify(tbody)
	trID := m.index.Identify(tr)

	m.distances[trID] = DistanceTable{1: {
		sizePair(trID, 1, 1): 0.1,
	}}

	gn := GNode{Parent: tbodyID, Start: 0, End: 1}
	if err := m.findRecords1(gn); err != nil {
		t.Fatalf("findRecords1: %v", err)
	}

	want := []DataRecord{{gn}}
	if !reflect.DeepEqual(m.records, want) {
		t.Fatalf("expected %v, got %v", want, m.records)
	}
}

// TestFindRecords1_NoChildScoresContributesNothing: a node without a size-1
// score table produces no record at all.
func TestFindRecords1_NoChildScoresContributesNothing(t *testing.T) {
	t.Parallel()

	body := parseBody(t, `<div><p>x</p></div>`)

	m := newTestMiner(t, DefaultConfig())
	bodyID := m.index.Identify(body)

	if err := m.findRecords1(GNode{Parent: bodyID, Start: 0, End: 1}); err != nil {
		t.Fatalf("findRecords1: %v", err)
	}
	if len(m.records) != 0 {
		t.Fatalf("expected no records, got %v", m.records)
	}
}

// TestFindRecords1_DissimilarChildrenKeepGNode: an above-threshold child pair
// keeps the gnode itself as one record.
func TestFindRecords1_DissimilarChildrenKeepGNode(t *testing.T) {
	t.Parallel()

	body := parseBody(t, `<div><p>x</p><h1>heading</h1></div>`)
	div := htmltree.ElementChildren(body)[0]

	m := newTestMiner(t, DefaultConfig())
	bodyID := m.index.Identify(body)
	divID := m.index.Identify(div)

	m.distances[divID] = DistanceTable{1: {
		sizePair(divID, 1, 1): 0.9,
	}}

	gn := GNode{Parent: bodyID, Start: 0, End: 1}
	if err := m.findRecords1(gn); err != nil {
		t.Fatalf("findRecords1: %v", err)
	}

	want := []DataRecord{{gn}}
	if !reflect.DeepEqual(m.records, want) {
		t.Fatalf("expected %v, got %v", want, m.records)
	}
}

// TestFindRecords1_StartOutOfRange: a gnode addressing a sibling index past
// the parent's children is an internal invariant violation, not a panic.
func TestFindRecords1_StartOutOfRange(t *testing.T) {
	t.Parallel()

	body := parseBody(t, `<div><p>x</p></div>`)

	m := newTestMiner(t, DefaultConfig())
	bodyID := m.index.Identify(body)

	if err := m.findRecords1(GNode{Parent: bodyID, Start: 5, End: 6}); err == nil {
		t.Fatalf("expected an error for out-of-range gnode start")
	}
}

// nTestTree builds <div><ul>..</ul><ul>..</ul></div> under body and returns
// the ids needed by the findRecordsN tests.
func nTestTree(t *testing.T, m *Miner, fragment string) (divID nodeindex.ID, ulIDs []nodeindex.ID) {
	t.Helper()
	body := parseBody(t, fragment)
	div := htmltree.ElementChildren(body)[0]
	m.index.Identify(body)
	divID = m.index.Identify(div)
	for _, ul := range htmltree.ElementChildren(div) {
		ulIDs = append(ulIDs, m.index.Identify(ul))
	}
	return divID, ulIDs
}

// TestFindRecordsN_SplitsIntoSpanningRecords: two sibling lists with the same
// child count and internally similar children yield one record per child
// index, each spanning both lists.
func TestFindRecordsN_SplitsIntoSpanningRecords(t *testing.T) {
	t.Parallel()

	m := newTestMiner(t, DefaultConfig())
	divID, ulIDs := nTestTree(t, m, `<div><ul><li>a</li><li>a</li></ul><ul><li>a</li><li>a</li></ul></div>`)

	for _, id := range ulIDs {
		m.distances[id] = DistanceTable{1: {
			sizePair(id, 1, 1): 0.1,
		}}
	}

	if err := m.findRecordsN(GNode{Parent: divID, Start: 0, End: 2}); err != nil {
		t.Fatalf("findRecordsN: %v", err)
	}

	want := []DataRecord{
		{{Parent: ulIDs[0], Start: 0, End: 1}, {Parent: ulIDs[1], Start: 0, End: 1}},
		{{Parent: ulIDs[0], Start: 1, End: 2}, {Parent: ulIDs[1], Start: 1, End: 2}},
	}
	if !reflect.DeepEqual(m.records, want) {
		t.Fatalf("expected %v, got %v", want, m.records)
	}
}

// TestFindRecordsN_MismatchedChildCountsKeepGNode: differing child counts
// disable the split; the whole gnode is one record.
func TestFindRecordsN_MismatchedChildCountsKeepGNode(t *testing.T) {
	t.Parallel()

	m := newTestMiner(t, DefaultConfig())
	divID, ulIDs := nTestTree(t, m, `<div><ul><li>a</li><li>a</li></ul><ul><li>a</li></ul></div>`)

	for _, id := range ulIDs {
		m.distances[id] = DistanceTable{1: {
			sizePair(id, 1, 1): 0.1,
		}}
	}

	gn := GNode{Parent: divID, Start: 0, End: 2}
	if err := m.findRecordsN(gn); err != nil {
		t.Fatalf("findRecordsN: %v", err)
	}

	want := []DataRecord{{gn}}
	if !reflect.DeepEqual(m.records, want) {
		t.Fatalf("expected %v, got %v", want, m.records)
	}
}

// TestFindRecordsN_MissingScoreTableKeepGNode: any component without a size-1
// score table disables the split.
func TestFindRecordsN_MissingScoreTableKeepGNode(t *testing.T) {
	t.Parallel()

	m := newTestMiner(t, DefaultConfig())
	divID, ulIDs := nTestTree(t, m, `<div><ul><li>a</li><li>a</li></ul><ul><li>a</li><li>a</li></ul></div>`)

	// Only the first list gets scores.
	m.distances[ulIDs[0]] = DistanceTable{1: {
		sizePair(ulIDs[0], 1, 1): 0.1,
	}}

	gn := GNode{Parent: divID, Start: 0, End: 2}
	if err := m.findRecordsN(gn); err != nil {
		t.Fatalf("findRecordsN: %v", err)
	}

	want := []DataRecord{{gn}}
	if !reflect.DeepEqual(m.records, want) {
		t.Fatalf("expected %v, got %v", want, m.records)
	}
}

// TestFindDataRecords_DeterministicOrder: records come out ordered by parent
// id and region position regardless of map iteration order.
func TestFindDataRecords_DeterministicOrder(t *testing.T) {
	t.Parallel()

	body := parseBody(t, `<div><a>x</a><a>x</a></div><div><a>y</a><a>y</a></div>`)
	divs := htmltree.ElementChildren(body)

	for i := 0; i < 20; i++ {
		m := newTestMiner(t, DefaultConfig())
		m.index.Identify(body)
		var ids []nodeindex.ID
		for _, d := range divs {
			ids = append(ids, m.index.Identify(d))
			// Mark each link's own children dissimilar so the gnode itself
			// stays one record instead of being exploded or dropped.
			for _, a := range htmltree.ElementChildren(d) {
				aID := m.index.Identify(a)
				m.distances[aID] = DistanceTable{1: {
					sizePair(aID, 1, 1): 0.9,
				}}
			}
		}

		m.regions[ids[0]] = regionSet{
			{Parent: ids[0], GNodeSize: 1, FirstGNodeStart: 0, NodesCovered: 2}: {},
		}
		m.regions[ids[1]] = regionSet{
			{Parent: ids[1], GNodeSize: 1, FirstGNodeStart: 0, NodesCovered: 2}: {},
		}

		if err := m.findDataRecords(); err != nil {
			t.Fatalf("findDataRecords: %v", err)
		}

		want := []DataRecord{
			{{Parent: ids[0], Start: 0, End: 1}},
			{{Parent: ids[0], Start: 1, End: 2}},
			{{Parent: ids[1], Start: 0, End: 1}},
			{{Parent: ids[1], Start: 1, End: 2}},
		}
		if !reflect.DeepEqual(m.records, want) {
			t.Fatalf("iteration %d: expected %v, got %v", i, want, m.records)
		}
	}
}
