/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package spantree

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Predicate selects nodes in queries.
type Predicate func(*Node) bool

// Node is a single span within a Tree.
type Node struct {
	span Span

	parent     *Node // not owned; nil for roots
	children   []*Node
	childIndex map[trace.SpanID]int
}

func newNode(span Span) *Node {
	return &Node{span: span}
}

// Span returns the wrapped span record.
func (n *Node) Span() Span { return n.span }

// SpanID returns the node's span ID.
func (n *Node) SpanID() trace.SpanID { return n.span.SpanID }

// TraceID returns the node's trace ID.
func (n *Node) TraceID() trace.TraceID { return n.span.TraceID }

// ParentID returns the parent span ID from the record, which may be invalid.
func (n *Node) ParentID() trace.SpanID { return n.span.ParentID }

// Name returns the span name.
func (n *Node) Name() string { return n.span.Name }

// Attributes returns the span attributes in recorded order.
func (n *Node) Attributes() []attribute.KeyValue { return n.span.Attributes }

// Attribute looks up a single attribute value.
func (n *Node) Attribute(key string) (attribute.Value, bool) { return n.span.Attribute(key) }

// StartTime returns the start timestamp in UTC, and false when it is absent.
func (n *Node) StartTime() (time.Time, bool) {
	if n.span.StartTime.IsZero() {
		return time.Time{}, false
	}
	return n.span.StartTime.UTC(), true
}

// EndTime returns the end timestamp in UTC, and false when it is absent.
func (n *Node) EndTime() (time.Time, bool) {
	if n.span.EndTime.IsZero() {
		return time.Time{}, false
	}
	return n.span.EndTime.UTC(), true
}

// Duration returns end minus start, and false unless both timestamps are set.
func (n *Node) Duration() (time.Duration, bool) {
	if n.span.StartTime.IsZero() || n.span.EndTime.IsZero() {
		return 0, false
	}
	return n.span.EndTime.Sub(n.span.StartTime), true
}

// Parent returns the parent node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the immediate children in attachment order.
// The returned slice is a copy.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// addChild attaches child under n. A child with an already present span ID
// takes over that slot, so children stay unique by span ID.
func (n *Node) addChild(child *Node) {
	if n.childIndex == nil {
		n.childIndex = make(map[trace.SpanID]int)
	}
	if i, ok := n.childIndex[child.span.SpanID]; ok {
		n.children[i] = child
	} else {
		n.childIndex[child.span.SpanID] = len(n.children)
		n.children = append(n.children, child)
	}
	child.parent = n
}

// detach drops all links so the node can be attached again by a rebuild.
func (n *Node) detach() {
	n.parent = nil
	n.children = nil
	n.childIndex = nil
}

// FindChildren returns the immediate children that satisfy pred, in child order.
func (n *Node) FindChildren(pred Predicate) []*Node {
	var found []*Node
	for _, child := range n.children {
		if pred(child) {
			found = append(found, child)
		}
	}
	return found
}

// FirstChild returns the first immediate child that satisfies pred, or nil.
func (n *Node) FirstChild(pred Predicate) *Node {
	for _, child := range n.children {
		if pred(child) {
			return child
		}
	}
	return nil
}

// AnyChild reports whether any immediate child satisfies pred.
func (n *Node) AnyChild(pred Predicate) bool {
	return n.FirstChild(pred) != nil
}

// FindDescendants returns every descendant that satisfies pred, in LIFO
// stack order (not sibling order).
func (n *Node) FindDescendants(pred Predicate) []*Node {
	return findAll(n.children, pred)
}

// FirstDescendant returns the first descendant in LIFO stack order that
// satisfies pred, or nil.
func (n *Node) FirstDescendant(pred Predicate) *Node {
	return findFirst(n.children, pred)
}

// AnyDescendant reports whether any descendant satisfies pred.
func (n *Node) AnyDescendant(pred Predicate) bool {
	return n.FirstDescendant(pred) != nil
}

// FindAncestors returns the ancestors that satisfy pred, nearest first.
func (n *Node) FindAncestors(pred Predicate) []*Node {
	var found []*Node
	for node := n.parent; node != nil; node = node.parent {
		if pred(node) {
			found = append(found, node)
		}
	}
	return found
}

// FirstAncestor returns the nearest ancestor that satisfies pred, or nil.
func (n *Node) FirstAncestor(pred Predicate) *Node {
	for node := n.parent; node != nil; node = node.parent {
		if pred(node) {
			return node
		}
	}
	return nil
}

// AnyAncestor reports whether any ancestor satisfies pred.
func (n *Node) AnyAncestor(pred Predicate) bool {
	return n.FirstAncestor(pred) != nil
}

// Matches reports whether the node has the given name and attributes.
// An empty name matches any name, so a span named "" cannot be singled out
// here; use And(Named(""), HasAttributes(...)) for that. Every given attribute must be present with
// an equal value of the same type; attributes not mentioned are ignored.
func (n *Node) Matches(name string, attrs ...attribute.KeyValue) bool {
	if name != "" && n.span.Name != name {
		return false
	}
	for _, want := range attrs {
		got, ok := n.span.Attribute(string(want.Key))
		if !ok || got != want.Value {
			return false
		}
	}
	return true
}

// findAll runs the LIFO stack walk shared by node and tree queries.
func findAll(seed []*Node, pred Predicate) []*Node {
	var found []*Node
	stack := make([]*Node, len(seed))
	copy(stack, seed)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if pred(node) {
			found = append(found, node)
		}
		stack = append(stack, node.children...)
	}
	return found
}

func findFirst(seed []*Node, pred Predicate) *Node {
	stack := make([]*Node, len(seed))
	copy(stack, seed)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if pred(node) {
			return node
		}
		stack = append(stack, node.children...)
	}
	return nil
}
