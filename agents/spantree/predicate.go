/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package spantree

import "go.opentelemetry.io/otel/attribute"

// Named matches nodes whose span name equals name.
func Named(name string) Predicate {
	return func(n *Node) bool { return n.span.Name == name }
}

// HasAttributes matches nodes carrying all of attrs with equal values.
func HasAttributes(attrs ...attribute.KeyValue) Predicate {
	return func(n *Node) bool { return n.Matches("", attrs...) }
}

// Matching is the predicate form of Node.Matches.
func Matching(name string, attrs ...attribute.KeyValue) Predicate {
	return func(n *Node) bool { return n.Matches(name, attrs...) }
}

// And matches nodes that satisfy every predicate.
func And(preds ...Predicate) Predicate {
	return func(n *Node) bool {
		for _, p := range preds {
			if !p(n) {
				return false
			}
		}
		return true
	}
}

// Or matches nodes that satisfy at least one predicate.
func Or(preds ...Predicate) Predicate {
	return func(n *Node) bool {
		for _, p := range preds {
			if p(n) {
				return true
			}
		}
		return false
	}
}

// Not inverts a predicate.
func Not(pred Predicate) Predicate {
	return func(n *Node) bool { return !pred(n) }
}
