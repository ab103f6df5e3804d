/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package evals grades agent runs by the spans they emit.

# Overview

An evaluation runs the agent under test once per Case, captures the spans of
each run in its own scope (see spancapture), rebuilds them into a
spantree.Tree and hands the tree to a set of evaluators:

	ds, err := evals.LoadDataset("testdata/triage.yaml")
	if err != nil {
		return err
	}
	collector, err := spancapture.Default()
	if err != nil {
		return err
	}
	obs := evals.NewNamespacedObserver(func(name string) *evals.ResultCollector {
		return evals.NewResultCollector(evals.NewMetricsObserver(ds.Name, name))
	})
	_, err = evals.Evaluate(ctx, collector, ds, runAgent, map[string]evals.SpanTreeCallback{
		"uses-search": evals.RequiredTools("search"),
		"no-errors":   evals.NoErrors(),
		"fast-tools": evals.MaxSpanDuration("tool call",
			spantree.Named(agenttrace.ToolCallSpanName), 5*time.Second),
	}, obs, 4)

Results land in the observer tree under /{case}/{evaluator}; report.ByCase
renders them as a table.

# Evaluators

A SpanTreeCallback receives an Observer and the captured tree and calls Fail,
Grade or Log. The helpers cover the common checks:

  - HasMatchingSpan / NoMatchingSpan: presence or absence of a span
  - SpanCount, ToolCalls: how many spans match
  - ChildOf: a parent/child relationship between matching spans
  - MaxSpanDuration: latency bound on matching spans
  - RequiredTools / OnlyTools / NoErrors: agent.tool_call conventions
  - SpanTreeValidator: arbitrary checks returning an error

# Observers

Observer implementations compose. ResultCollector keeps failures and grades
for reports, MetricsObserver exports Prometheus counters and
testevals.New adapts a *testing.T. NamespacedObserver arranges any of them
into a tree keyed by path.
*/
package evals
