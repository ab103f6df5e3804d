/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package spantree

import (
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/trace"
)

// Tree is the span hierarchy reconstructed from a set of spans.
// A Tree owns its nodes; nodes are never shared between trees.
type Tree struct {
	nodes []*Node // canonical order: start time, then input order
	byID  map[trace.SpanID]*Node
	roots []*Node
}

// Build reconstructs the tree for spans. It never fails: missing parents
// promote spans to roots, missing start times sort first and repeated span
// IDs keep the last record.
func Build(spans []Span) *Tree {
	t := &Tree{byID: make(map[trace.SpanID]*Node, len(spans))}
	t.Add(spans...)
	return t
}

// Add appends spans and rebuilds the whole tree.
func (t *Tree) Add(spans ...Span) {
	if t.byID == nil {
		t.byID = make(map[trace.SpanID]*Node, len(spans))
	}
	for _, s := range spans {
		node := newNode(s)
		if prev, ok := t.byID[s.SpanID]; ok {
			// Keep the slot of the first record so ties still sort by first appearance.
			i := slices.Index(t.nodes, prev)
			t.nodes[i] = node
		} else {
			t.nodes = append(t.nodes, node)
		}
		t.byID[s.SpanID] = node
	}
	t.rebuild()
}

func (t *Tree) rebuild() {
	slices.SortStableFunc(t.nodes, func(a, b *Node) int {
		// The zero time is earlier than any real timestamp, so absent starts sort first.
		return a.span.StartTime.Compare(b.span.StartTime)
	})

	for _, node := range t.nodes {
		node.detach()
	}

	t.roots = t.roots[:0]
	for _, node := range t.nodes {
		if node.span.HasParent() {
			if parent, ok := t.byID[node.span.ParentID]; ok {
				parent.addChild(node)
				continue
			}
		}
		t.roots = append(t.roots, node)
	}
}

// Roots returns the nodes without a parent in this tree, in canonical order.
func (t *Tree) Roots() []*Node {
	out := make([]*Node, len(t.roots))
	copy(out, t.roots)
	return out
}

// Nodes returns every node in canonical order.
func (t *Tree) Nodes() []*Node {
	out := make([]*Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// Node returns the node for a span ID.
func (t *Tree) Node(id trace.SpanID) (*Node, bool) {
	n, ok := t.byID[id]
	return n, ok
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// FindAll returns every node that satisfies pred, walking from all roots in
// LIFO stack order.
func (t *Tree) FindAll(pred Predicate) []*Node {
	return findAll(t.roots, pred)
}

// FindFirst returns the first node in LIFO stack order that satisfies pred, or nil.
func (t *Tree) FindFirst(pred Predicate) *Node {
	return findFirst(t.roots, pred)
}

// Any reports whether any node satisfies pred.
func (t *Tree) Any(pred Predicate) bool {
	return t.FindFirst(pred) != nil
}

func (t *Tree) String() string {
	return fmt.Sprintf("<SpanTree num_roots=%d total_spans=%d />", len(t.roots), len(t.nodes))
}
