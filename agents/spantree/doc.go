/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package spantree reconstructs the call tree of a set of finished spans and
provides predicate based queries over it.

# Overview

Spans arrive flat and unordered. Each one references its parent by span ID,
and the parent may be missing from the set (a truncated collection or the
boundary of a trace). Build turns such a set into a Tree:

  - one Node per Span; a repeated span ID replaces the earlier record
  - nodes are stable-sorted by start time, spans without one sort first
  - each node is attached to its parent when the parent is present
  - everything else becomes a root, in the same order

# Usage

	tree := spantree.Build(spans)

	for _, root := range tree.Roots() {
		calls := root.FindDescendants(spantree.Named("agent.tool_call"))
		...
	}

	if !tree.Any(spantree.Matching("agent.tool_call", attribute.String("tool.name", "search"))) {
		t.Error("search tool was never called")
	}

	fmt.Println(tree.Render(spantree.WithSpanID(), spantree.WithDuration()))

# Traversal order

Child queries follow child order. Descendant and tree-wide queries use an
explicit LIFO stack, so they visit every node exactly once but do not follow
sibling order. Sort the results by StartTime when order matters.

Trees are not safe for concurrent mutation. Concurrent reads of a built tree
are fine.

Parent cycles in the input are not detected; ancestor and descendant
walks over such input do not terminate.
*/
package spantree
