/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"chainguard.dev/spanevals/agents/agenttrace"
	"chainguard.dev/spanevals/agents/spantree"
)

// HasMatchingSpan fails unless some span in the tree satisfies pred.
func HasMatchingSpan(description string, pred spantree.Predicate) SpanTreeCallback {
	return func(o Observer, tree *spantree.Tree) {
		if !tree.Any(pred) {
			o.Fail(fmt.Sprintf("span matching %s: got = none, wanted = at least one", description))
		}
	}
}

// NoMatchingSpan fails if any span in the tree satisfies pred.
func NoMatchingSpan(description string, pred spantree.Predicate) SpanTreeCallback {
	return func(o Observer, tree *spantree.Tree) {
		if n := tree.FindFirst(pred); n != nil {
			o.Fail(fmt.Sprintf("span matching %s: got = %s, wanted = none", description, n))
		}
	}
}

// SpanCount fails unless the number of spans satisfying pred is within
// [min, max]. A negative max means no upper bound.
func SpanCount(description string, pred spantree.Predicate, min, max int) SpanTreeCallback {
	return func(o Observer, tree *spantree.Tree) {
		got := len(tree.FindAll(pred))
		switch {
		case max < 0 && got < min:
			o.Fail(fmt.Sprintf("%s count: got = %d, wanted >= %d", description, got, min))
		case max >= 0 && (got < min || got > max):
			if min == max {
				o.Fail(fmt.Sprintf("%s count: got = %d, wanted = %d", description, got, min))
			} else {
				o.Fail(fmt.Sprintf("%s count: got = %d, wanted = %d..%d", description, got, min, max))
			}
		}
	}
}

// MaxSpanDuration fails for the first span satisfying pred that ran longer
// than limit. Spans without both timestamps are skipped.
func MaxSpanDuration(description string, pred spantree.Predicate, limit time.Duration) SpanTreeCallback {
	return func(o Observer, tree *spantree.Tree) {
		for _, n := range tree.FindAll(pred) {
			if d, ok := n.Duration(); ok && d > limit {
				o.Fail(fmt.Sprintf("%s duration: got = %v (%s), wanted <= %v", description, d, n, limit))
				return
			}
		}
	}
}

// ChildOf fails unless some span satisfying child has a direct parent
// satisfying parent.
func ChildOf(description string, parent, child spantree.Predicate) SpanTreeCallback {
	return func(o Observer, tree *spantree.Tree) {
		for _, n := range tree.FindAll(parent) {
			if n.AnyChild(child) {
				return
			}
		}
		o.Fail(fmt.Sprintf("%s: got = no matching parent/child pair, wanted = one", description))
	}
}

// SpanTreeValidator adapts a validation function that returns an error.
func SpanTreeValidator(validator func(o Observer, tree *spantree.Tree) error) SpanTreeCallback {
	return func(o Observer, tree *spantree.Tree) {
		if err := validator(o, tree); err != nil {
			o.Fail(err.Error())
		}
	}
}

// ToolCalls fails unless the number of agent.tool_call spans is within
// [min, max]. A negative max means no upper bound.
func ToolCalls(min, max int) SpanTreeCallback {
	return SpanCount("tool call", spantree.Named(agenttrace.ToolCallSpanName), min, max)
}

func toolName(n *spantree.Node) string {
	v, _ := n.Attribute(string(agenttrace.AttrToolName))
	return v.AsString()
}

// RequiredTools fails unless every named tool was called at least once.
func RequiredTools(names ...string) SpanTreeCallback {
	return func(o Observer, tree *spantree.Tree) {
		required := make(map[string]struct{}, len(names))
		for _, name := range names {
			required[name] = struct{}{}
		}
		for _, n := range tree.FindAll(spantree.Named(agenttrace.ToolCallSpanName)) {
			delete(required, toolName(n))
		}
		if len(required) > 0 {
			o.Fail(fmt.Sprintf("missing required tool calls: %v", slices.Sorted(maps.Keys(required))))
		}
	}
}

// OnlyTools fails if any tool other than the named ones was called.
func OnlyTools(names ...string) SpanTreeCallback {
	return func(o Observer, tree *spantree.Tree) {
		for _, n := range tree.FindAll(spantree.Named(agenttrace.ToolCallSpanName)) {
			if name := toolName(n); !slices.Contains(names, name) {
				o.Fail(fmt.Sprintf("unexpected tool call %q, only allowed: %v", name, names))
				return
			}
		}
	}
}

// NoErrors fails if any span carries an error attribute.
func NoErrors() SpanTreeCallback {
	return func(o Observer, tree *spantree.Tree) {
		n := tree.FindFirst(func(n *spantree.Node) bool {
			_, ok := n.Attribute(string(agenttrace.AttrError))
			return ok
		})
		if n != nil {
			v, _ := n.Attribute(string(agenttrace.AttrError))
			o.Fail(fmt.Sprintf("%s error: got = %v, wanted = nil", n.Name(), v.Emit()))
		}
	}
}

// BuildCallbacks binds each evaluator to a child of observer named after it.
func BuildCallbacks[O Observer](observer *NamespacedObserver[O], evalMap map[string]SpanTreeCallback) []func(*spantree.Tree) {
	callbacks := make([]func(*spantree.Tree), 0, len(evalMap))
	for _, name := range slices.Sorted(maps.Keys(evalMap)) {
		callbacks = append(callbacks, Inject(observer.Child(name), evalMap[name]))
	}
	return callbacks
}
