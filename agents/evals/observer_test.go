/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals_test

import (
	"testing"

	"chainguard.dev/spanevals/agents/evals"
	"chainguard.dev/spanevals/agents/spantree"
	"github.com/google/go-cmp/cmp"
)

func TestNamespacedObserver(t *testing.T) {
	created := map[string]*testObserver{}
	obs := evals.NewNamespacedObserver(func(name string) *testObserver {
		o := &testObserver{}
		created[name] = o
		return o
	})

	a := obs.Child("case-b").Child("tools")
	if again := obs.Child("case-b").Child("tools"); again != a {
		t.Error("Child: got = new namespace, wanted = existing one")
	}
	obs.Child("case-a").Child("errors").Fail("boom")
	a.Log("hello")

	if a.Name() != "/case-b/tools" {
		t.Errorf("Name: got = %q, wanted = /case-b/tools", a.Name())
	}
	if diff := cmp.Diff([]string{"boom"}, created["/case-a/errors"].failures); diff != "" {
		t.Errorf("failures (-want +got):\n%s", diff)
	}

	var visited []string
	obs.Walk(func(name string, _ *testObserver) { visited = append(visited, name) })
	want := []string{"/", "/case-a", "/case-a/errors", "/case-b", "/case-b/tools"}
	if diff := cmp.Diff(want, visited); diff != "" {
		t.Errorf("Walk order (-want +got):\n%s", diff)
	}
}

func TestBuildCallbacks(t *testing.T) {
	obs := evals.NewNamespacedObserver(func(string) *testObserver { return &testObserver{} })
	callbacks := evals.BuildCallbacks(obs, map[string]evals.SpanTreeCallback{
		"ok":   evals.ToolCalls(0, -1),
		"fail": evals.ToolCalls(10, -1),
	})
	if len(callbacks) != 2 {
		t.Fatalf("callbacks: got = %d, wanted = 2", len(callbacks))
	}
	tree := agentTree()
	for _, cb := range callbacks {
		cb(tree)
		cb(tree)
	}

	if got := obs.Child("ok").Total(); got != 2 {
		t.Errorf("ok Total: got = %d, wanted = 2", got)
	}
	if got := len(obs.Child("fail").Inner().failures); got != 2 {
		t.Errorf("fail failures: got = %d, wanted = 2", got)
	}
	if got := len(obs.Child("ok").Inner().failures); got != 0 {
		t.Errorf("ok failures: got = %d, wanted = 0", got)
	}
}

func TestResultCollector(t *testing.T) {
	inner := &testObserver{}
	rc := evals.NewResultCollector(inner)

	if _, ok := rc.AverageGrade(); ok {
		t.Error("AverageGrade before grading: got = ok, wanted = none")
	}
	evals.Inject(rc, func(o evals.Observer, _ *spantree.Tree) {
		o.Fail("first")
		o.Grade(0.5, "meh")
		o.Grade(1.0, "great")
	})(agentTree())

	if diff := cmp.Diff([]string{"first"}, rc.Failures()); diff != "" {
		t.Errorf("Failures (-want +got):\n%s", diff)
	}
	if len(inner.failures) != 0 {
		t.Errorf("inner failures: got = %v, wanted = none (forwarded as logs)", inner.failures)
	}
	if got, ok := rc.AverageGrade(); !ok || got != 0.75 {
		t.Errorf("AverageGrade: got = %v, wanted = 0.75", got)
	}
	if got := rc.Total(); got != 1 {
		t.Errorf("Total: got = %d, wanted = 1", got)
	}

	grades := rc.Grades()
	grades[0].Score = 0
	if rc.Grades()[0].Score != 0.5 {
		t.Error("Grades: got = shared slice, wanted = copy")
	}
}
