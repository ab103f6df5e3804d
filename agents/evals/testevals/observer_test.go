/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package testevals_test

import (
	"fmt"
	"testing"

	"chainguard.dev/spanevals/agents/evals"
	"chainguard.dev/spanevals/agents/evals/testevals"
	"chainguard.dev/spanevals/agents/spantree"
	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// recordingTB captures what the observer reports instead of failing the test.
type recordingTB struct {
	testing.TB
	errors []string
	logs   []string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Error(args ...any) { r.errors = append(r.errors, fmt.Sprint(args...)) }

func (r *recordingTB) Log(args ...any) { r.logs = append(r.logs, fmt.Sprint(args...)) }

func sampleTree() *spantree.Tree {
	id := func(n byte) trace.SpanID { return trace.SpanID{7: n} }
	return spantree.Build([]spantree.Span{
		{SpanID: id(1), Name: "agent.execution"},
		{SpanID: id(2), ParentID: id(1), Name: "agent.tool_call", Attributes: []attribute.KeyValue{
			attribute.String("tool.name", "search"),
		}},
	})
}

func TestObserverReportsThroughTB(t *testing.T) {
	tb := &recordingTB{TB: t}
	obs := evals.NewNamespacedObserver(func(name string) evals.Observer {
		return testevals.NewPrefix(tb, name)
	})

	for _, cb := range evals.BuildCallbacks(obs, map[string]evals.SpanTreeCallback{
		"required": evals.RequiredTools("search", "read_file"),
		"graded": func(o evals.Observer, tree *spantree.Tree) {
			o.Grade(0.5, "half the tools")
		},
	}) {
		cb(sampleTree())
	}

	wantErrors := []string{"/required: missing required tool calls: [read_file]"}
	if diff := cmp.Diff(wantErrors, tb.errors); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
	wantLogs := []string{"/graded: Grade: 0.50 - half the tools"}
	if diff := cmp.Diff(wantLogs, tb.logs); diff != "" {
		t.Errorf("logs (-want +got):\n%s", diff)
	}
	if got := obs.Child("required").Total(); got != 1 {
		t.Errorf("required Total: got = %d, wanted = 1", got)
	}
}

func TestObserverWithoutPrefix(t *testing.T) {
	tb := &recordingTB{TB: t}
	obs := testevals.New(tb)

	obs.Log("hello")
	obs.Fail("boom")
	obs.Increment()
	obs.Increment()

	if diff := cmp.Diff([]string{"hello"}, tb.logs); diff != "" {
		t.Errorf("logs (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"boom"}, tb.errors); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
	if got := obs.Total(); got != 2 {
		t.Errorf("Total: got = %d, wanted = 2", got)
	}
}

func TestObserverPassesCleanTree(t *testing.T) {
	obs := testevals.New(t)
	evals.Inject(obs, evals.NoErrors())(sampleTree())
	evals.Inject(obs, evals.OnlyTools("search"))(sampleTree())
}
