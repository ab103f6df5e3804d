/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package spantree

import (
	"encoding/binary"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var testTraceID = trace.TraceID{0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

func sid(n uint64) trace.SpanID {
	var id trace.SpanID
	binary.BigEndian.PutUint64(id[:], n)
	return id
}

// span builds a record whose start is startNS nanoseconds after the epoch.
// A negative startNS leaves the start time absent.
func span(id, parent uint64, startNS int64, name string, attrs ...attribute.KeyValue) Span {
	s := Span{
		TraceID:    testTraceID,
		SpanID:     sid(id),
		Name:       name,
		Attributes: attrs,
	}
	if parent != 0 {
		s.ParentID = sid(parent)
	}
	if startNS >= 0 {
		s.StartTime = time.Unix(0, startNS)
		s.EndTime = s.StartTime.Add(time.Millisecond)
	}
	return s
}

func names(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name())
	}
	return out
}

func exampleSpans() []Span {
	return []Span{
		span(1, 0, 0, "root"),
		span(2, 1, 10, "child-a"),
		span(3, 1, 5, "child-b"),
		span(4, 99, 1, "orphan"),
	}
}

func TestBuildExampleScenario(t *testing.T) {
	tree := Build(exampleSpans())

	if diff := cmp.Diff([]string{"root", "orphan"}, names(tree.Roots())); diff != "" {
		t.Errorf("roots (-want +got):\n%s", diff)
	}

	root, ok := tree.Node(sid(1))
	if !ok {
		t.Fatal("root node: got = missing, wanted = present")
	}
	if diff := cmp.Diff([]string{"child-b", "child-a"}, names(root.Children())); diff != "" {
		t.Errorf("root children (-want +got):\n%s", diff)
	}

	orphan, _ := tree.Node(sid(4))
	if orphan.Parent() != nil {
		t.Errorf("orphan parent: got = %v, wanted = nil", orphan.Parent())
	}

	if got, want := tree.String(), "<SpanTree num_roots=2 total_spans=4 />"; got != want {
		t.Errorf("String(): got = %q, wanted = %q", got, want)
	}
}

func TestBuildOrderDeterminism(t *testing.T) {
	r1 := span(2, 1, 100, "r1")
	r2 := span(3, 1, 200, "r2")
	p := span(1, 0, 50, "p")

	for i, input := range [][]Span{{p, r1, r2}, {p, r2, r1}, {r2, r1, p}, {r1, p, r2}} {
		parent, _ := Build(input).Node(sid(1))
		if diff := cmp.Diff([]string{"r1", "r2"}, names(parent.Children())); diff != "" {
			t.Errorf("children for input %d (-want +got):\n%s", i, diff)
		}
	}
}

func TestBuildTiesKeepInputOrder(t *testing.T) {
	tree := Build([]Span{
		span(1, 0, 0, "p"),
		span(2, 1, 7, "first"),
		span(3, 1, 7, "second"),
		span(4, 1, 7, "third"),
	})
	parent, _ := tree.Node(sid(1))
	if diff := cmp.Diff([]string{"first", "second", "third"}, names(parent.Children())); diff != "" {
		t.Errorf("tied children (-want +got):\n%s", diff)
	}
}

func TestBuildMissingStartSortsFirst(t *testing.T) {
	tree := Build([]Span{
		span(1, 0, 5, "started"),
		span(2, 0, -1, "unstarted"),
	})
	if diff := cmp.Diff([]string{"unstarted", "started"}, names(tree.Roots())); diff != "" {
		t.Errorf("roots (-want +got):\n%s", diff)
	}
	n, _ := tree.Node(sid(2))
	if _, ok := n.StartTime(); ok {
		t.Error("StartTime ok: got = true, wanted = false")
	}
	if _, ok := n.Duration(); ok {
		t.Error("Duration ok: got = true, wanted = false")
	}
}

func TestBuildRootPromotion(t *testing.T) {
	tree := Build([]Span{span(7, 12345, 1, "lonely")})
	roots := tree.Roots()
	if len(roots) != 1 || roots[0].Name() != "lonely" {
		t.Errorf("roots: got = %v, wanted = [lonely]", names(roots))
	}
	if !roots[0].ParentID().IsValid() {
		t.Error("parent ID: got = invalid, wanted = kept from record")
	}
}

func TestBuildDuplicateCollapse(t *testing.T) {
	tree := Build([]Span{
		span(1, 0, 0, "root"),
		span(2, 1, 10, "dup", attribute.String("version", "first")),
		span(2, 1, 10, "dup", attribute.String("version", "second")),
	})

	if got := tree.Len(); got != 2 {
		t.Fatalf("Len(): got = %d, wanted = 2", got)
	}
	n, _ := tree.Node(sid(2))
	if v, _ := n.Attribute("version"); v.AsString() != "second" {
		t.Errorf("version: got = %q, wanted = %q", v.AsString(), "second")
	}
	root, _ := tree.Node(sid(1))
	if got := len(root.Children()); got != 1 {
		t.Errorf("root children: got = %d, wanted = 1", got)
	}
}

func TestBuildEmpty(t *testing.T) {
	tree := Build(nil)
	if tree.Len() != 0 || len(tree.Roots()) != 0 {
		t.Errorf("empty tree: got = %d nodes %d roots, wanted = 0 and 0", tree.Len(), len(tree.Roots()))
	}
	if tree.Any(func(*Node) bool { return true }) {
		t.Error("Any on empty tree: got = true, wanted = false")
	}
}

// randomSpans produces a shuffled forest with missing parents, absent start
// times and duplicate IDs.
func randomSpans(r *rand.Rand, n int) []Span {
	spans := make([]Span, 0, n)
	for i := 1; i <= n; i++ {
		var parent uint64
		switch r.Intn(4) {
		case 0:
		case 1:
			parent = uint64(n + 1 + r.Intn(5)) // never present
		default:
			parent = uint64(r.Intn(i)) // an earlier ID, or none
		}
		start := int64(r.Intn(50))
		if r.Intn(10) == 0 {
			start = -1
		}
		spans = append(spans, span(uint64(i), parent, start, "s", attribute.Int("i", i)))
	}
	for range n / 10 {
		spans = append(spans, span(uint64(r.Intn(n)+1), 0, int64(r.Intn(50)), "dup"))
	}
	r.Shuffle(len(spans), func(i, j int) { spans[i], spans[j] = spans[j], spans[i] })
	return spans
}

func TestBuildProperties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for iter := range 50 {
		spans := randomSpans(r, 20+iter)

		distinct := map[trace.SpanID]Span{}
		for _, s := range spans {
			distinct[s.SpanID] = s
		}

		tree := Build(spans)

		// Completeness.
		if got, want := tree.Len(), len(distinct); got != want {
			t.Fatalf("Len(): got = %d, wanted = %d", got, want)
		}

		// Parentage exclusivity and root promotion.
		childOf := map[*Node]int{}
		for _, n := range tree.Nodes() {
			for _, c := range n.Children() {
				childOf[c]++
				if c.ParentID() != n.SpanID() {
					t.Errorf("child %s parent ID: got = %s, wanted = %s", c.SpanID(), c.ParentID(), n.SpanID())
				}
				if c.Parent() != n {
					t.Errorf("child %s back pointer: got = %v, wanted = %v", c.SpanID(), c.Parent(), n)
				}
			}
		}
		roots := map[*Node]bool{}
		for _, root := range tree.Roots() {
			roots[root] = true
		}
		for _, n := range tree.Nodes() {
			_, parentPresent := distinct[n.ParentID()]
			isRoot := !n.ParentID().IsValid() || !parentPresent
			if roots[n] != isRoot {
				t.Errorf("node %s root: got = %v, wanted = %v", n.SpanID(), roots[n], isRoot)
			}
			wantParents := 1
			if isRoot {
				wantParents = 0
			}
			if childOf[n] != wantParents {
				t.Errorf("node %s parents: got = %d, wanted = %d", n.SpanID(), childOf[n], wantParents)
			}
		}

		// Idempotent rebuild.
		again := Build(spans)
		if got, want := again.Render(WithSpanID()), tree.Render(WithSpanID()); got != want {
			t.Errorf("rebuild render mismatch:\n got = %s\n wanted = %s", got, want)
		}
	}
}

func TestTreeAddRebuildsFully(t *testing.T) {
	tree := Build([]Span{
		span(1, 0, 0, "root"),
		span(3, 1, 30, "late"),
	})
	tree.Add(span(2, 1, 10, "early"), span(4, 0, -1, "unstarted"))

	if diff := cmp.Diff([]string{"unstarted", "root"}, names(tree.Roots())); diff != "" {
		t.Errorf("roots (-want +got):\n%s", diff)
	}
	root, _ := tree.Node(sid(1))
	if diff := cmp.Diff([]string{"early", "late"}, names(root.Children())); diff != "" {
		t.Errorf("children after Add (-want +got):\n%s", diff)
	}

	// Replacing a parent keeps its children attached to the new node.
	tree.Add(span(1, 0, 0, "root-v2"))
	root, _ = tree.Node(sid(1))
	if got := len(root.Children()); got != 2 {
		t.Errorf("children of replaced root: got = %d, wanted = 2", got)
	}
	if late, _ := tree.Node(sid(3)); late.Parent() != root {
		t.Errorf("late parent: got = %v, wanted = %v", late.Parent(), root)
	}
	if got := tree.Len(); got != 4 {
		t.Errorf("Len(): got = %d, wanted = 4", got)
	}
}

func TestRenderExampleScenario(t *testing.T) {
	want := strings.Join([]string{
		`<SpanTree>`,
		`  <SpanNode name="root" >`,
		`    <SpanNode name="child-b" />`,
		`    <SpanNode name="child-a" />`,
		`  </SpanNode>`,
		`  <SpanNode name="orphan" />`,
		`</SpanTree>`,
	}, "\n")
	if diff := cmp.Diff(want, Build(exampleSpans()).Render()); diff != "" {
		t.Errorf("Render() (-want +got):\n%s", diff)
	}
}

func TestRenderOptions(t *testing.T) {
	tree := Build(exampleSpans())
	root, _ := tree.Node(sid(1))

	got := root.Render(WithSpanID(), WithTraceID(), WithStartTimestamp(), WithDuration(), WithoutChildren())
	want := `<SpanNode name="root" span_id=0000000000000001 trace_id=0a0b0c0d0e0f0102030405060708090a ` +
		`start_timestamp=1970-01-01T00:00:00Z duration=1ms children=... />`
	if got != want {
		t.Errorf("Render(): got = %q, wanted = %q", got, want)
	}

	unstarted := Build([]Span{span(9, 0, -1, "x")})
	if got := unstarted.Render(WithStartTimestamp(), WithDuration()); !strings.Contains(got, "start_timestamp=none duration=none") {
		t.Errorf("Render() of unstarted span: got = %q, wanted = none placeholders", got)
	}

	if got, want := root.String(), `<SpanNode name="root" span_id=0000000000000001>...</SpanNode>`; got != want {
		t.Errorf("String(): got = %q, wanted = %q", got, want)
	}
}

func TestRenderTagCounts(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for range 20 {
		tree := Build(randomSpans(r, 40))
		out := tree.Render(WithSpanID())

		withChildren := 0
		for _, n := range tree.Nodes() {
			if len(n.Children()) > 0 {
				withChildren++
			}
		}
		if got := strings.Count(out, "<SpanNode "); got != tree.Len() {
			t.Errorf("opening tags: got = %d, wanted = %d", got, tree.Len())
		}
		if got := strings.Count(out, "</SpanNode>"); got != withChildren {
			t.Errorf("closing tags: got = %d, wanted = %d", got, withChildren)
		}
		if out != tree.Render(WithSpanID()) {
			t.Error("Render() is not stable across calls")
		}
	}
}
