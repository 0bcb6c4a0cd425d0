// Package nodeindex assigns stable, human-readable identities to HTML nodes
// and resolves them back.
//
// Identity lives in auxiliary maps keyed by node pointer; node content is
// never touched, so identity is invisible to serialization and to node
// equality everywhere else in the system.
package nodeindex

import (
	"errors"
	"fmt"

	"golang.org/x/net/html"
)

// ID is the stable identifier of a node within one mining run.
// It is formatted as "<tag>-<sequence>" (e.g. "div-00012") for reporting.
type ID string

// ErrUnknownID is returned by Resolve for an identifier that was never
// assigned by this index. It indicates an internal invariant violation in the
// caller, not a recoverable condition.
var ErrUnknownID = errors.New("nodeindex: unknown node id")

// Index maps nodes to IDs and back.
//
// Identify is idempotent: the first call on a node allocates the next
// per-tag sequence number, later calls return the recorded ID.
//
// Concurrency: an Index belongs to a single mining run and is not safe for
// concurrent use.
type Index struct {
	tagCounts map[string]int
	byNode    map[*html.Node]ID
	byID      map[ID]*html.Node
}

// New creates an empty Index.
func New() *Index {
	return &Index{
		tagCounts: make(map[string]int),
		byNode:    make(map[*html.Node]ID),
		byID:      make(map[ID]*html.Node),
	}
}

// Identify returns the ID for node, assigning one on first visit.
//
// Each tag gets its own sequence, so the first <div> seen is "div-00000",
// the second "div-00001", and so on. Non-element nodes are identified by
// their type-specific label ("#text", "#comment", "#document").
func (x *Index) Identify(node *html.Node) ID {
	if id, ok := x.byNode[node]; ok {
		return id
	}

	tag := nodeLabel(node)
	seq := x.tagCounts[tag]
	x.tagCounts[tag]++

	id := ID(fmt.Sprintf("%s-%05d", tag, seq))
	x.byNode[node] = id
	x.byID[id] = node
	return id
}

// Resolve returns the node previously registered under id.
//
// Errors:
//   - ErrUnknownID (wrapped) if id was never assigned by this index.
func (x *Index) Resolve(id ID) (*html.Node, error) {
	node, ok := x.byID[id]
	if !ok {
		return nil, fmt.Errorf("resolve %q: %w", id, ErrUnknownID)
	}
	return node, nil
}

// Len reports how many nodes have been identified so far.
func (x *Index) Len() int { return len(x.byNode) }

func nodeLabel(node *html.Node) string {
	switch node.Type {
	case html.ElementNode:
		return node.Data
	case html.TextNode:
		return "#text"
	case html.CommentNode:
		return "#comment"
	case html.DocumentNode:
		return "#document"
	case html.DoctypeNode:
		return "#doctype"
	default:
		return "#node"
	}
}
