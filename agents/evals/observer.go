/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"maps"
	"path"
	"slices"
	"sync"

	"chainguard.dev/spanevals/agents/spantree"
)

// Observer receives the outcome of evaluating one captured span tree.
type Observer interface {
	// Fail marks the evaluation as failed with the given message.
	// Should be called at most once per evaluated tree.
	Fail(string)
	// Log records a message. May be called any number of times.
	Log(string)
	// Grade assigns a score (0.0-1.0) with reasoning.
	// Should be called at most once per evaluated tree.
	Grade(score float64, reasoning string)
	// Increment is called each time a tree is evaluated.
	Increment()
	// Total returns the number of evaluated trees.
	Total() int64
}

// SpanTreeCallback evaluates the span tree captured for one case.
type SpanTreeCallback func(Observer, *spantree.Tree)

// Inject binds obs to callback, counting each evaluation on obs.
func Inject(obs Observer, callback SpanTreeCallback) func(*spantree.Tree) {
	return func(tree *spantree.Tree) {
		obs.Increment()
		callback(obs, tree)
	}
}

// NamespacedObserver arranges observers in a tree of slash-separated
// namespaces, e.g. /{case}/{evaluator}.
type NamespacedObserver[T Observer] struct {
	name    string
	inner   T
	factory func(string) T

	mu       sync.Mutex // guards children
	children map[string]*NamespacedObserver[T]
}

// NewNamespacedObserver creates the root namespace "/".
func NewNamespacedObserver[T Observer](factory func(string) T) *NamespacedObserver[T] {
	return &NamespacedObserver[T]{
		name:     "/",
		inner:    factory("/"),
		factory:  factory,
		children: make(map[string]*NamespacedObserver[T]),
	}
}

// Name returns the full path of this namespace.
func (n *NamespacedObserver[T]) Name() string { return n.name }

// Inner returns the observer backing this namespace.
func (n *NamespacedObserver[T]) Inner() T { return n.inner }

func (n *NamespacedObserver[T]) Fail(msg string) { n.inner.Fail(msg) }
func (n *NamespacedObserver[T]) Log(msg string)  { n.inner.Log(msg) }

func (n *NamespacedObserver[T]) Grade(score float64, reasoning string) {
	n.inner.Grade(score, reasoning)
}

func (n *NamespacedObserver[T]) Increment()   { n.inner.Increment() }
func (n *NamespacedObserver[T]) Total() int64 { return n.inner.Total() }

// Child returns the named child namespace, creating it on first use.
func (n *NamespacedObserver[T]) Child(name string) *NamespacedObserver[T] {
	n.mu.Lock()
	defer n.mu.Unlock()

	if child, ok := n.children[name]; ok {
		return child
	}
	p := path.Join(n.name, name)
	child := &NamespacedObserver[T]{
		name:     p,
		inner:    n.factory(p),
		factory:  n.factory,
		children: make(map[string]*NamespacedObserver[T]),
	}
	n.children[name] = child
	return child
}

// Walk visits this namespace and then its children depth first, siblings in
// name order.
func (n *NamespacedObserver[T]) Walk(visitor func(string, T)) {
	visitor(n.name, n.inner)

	n.mu.Lock()
	names := slices.Sorted(maps.Keys(n.children))
	children := make([]*NamespacedObserver[T], len(names))
	for i, name := range names {
		children[i] = n.children[name]
	}
	n.mu.Unlock()

	for _, child := range children {
		child.Walk(visitor)
	}
}
