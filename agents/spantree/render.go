/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package spantree

import (
	"fmt"
	"strings"
	"time"
)

const indentUnit = "  "

type renderOptions struct {
	excludeChildren bool
	spanID          bool
	traceID         bool
	startTimestamp  bool
	duration        bool
}

// RenderOption adds fields to the rendered output.
type RenderOption func(*renderOptions)

// WithSpanID renders span IDs as 16 hex digits.
func WithSpanID() RenderOption { return func(o *renderOptions) { o.spanID = true } }

// WithTraceID renders trace IDs as 32 hex digits.
func WithTraceID() RenderOption { return func(o *renderOptions) { o.traceID = true } }

// WithStartTimestamp renders the start time in RFC 3339 (UTC).
func WithStartTimestamp() RenderOption { return func(o *renderOptions) { o.startTimestamp = true } }

// WithDuration renders the span duration.
func WithDuration() RenderOption { return func(o *renderOptions) { o.duration = true } }

// WithoutChildren renders only the top level; nodes with children are
// marked with children=... instead.
func WithoutChildren() RenderOption { return func(o *renderOptions) { o.excludeChildren = true } }

func newRenderOptions(opts []RenderOption) renderOptions {
	var o renderOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Render returns an XML-like representation of the tree, one <SpanNode> tag
// per rendered node, indented two spaces per level.
func (t *Tree) Render(opts ...RenderOption) string {
	o := newRenderOptions(opts)

	var sb strings.Builder
	sb.WriteString("<SpanTree>\n")
	for _, root := range t.roots {
		root.render(&sb, o, indentUnit)
	}
	sb.WriteString("</SpanTree>")
	return sb.String()
}

// Render returns an XML-like representation of the node and its subtree.
func (n *Node) Render(opts ...RenderOption) string {
	var sb strings.Builder
	n.render(&sb, newRenderOptions(opts), "")
	return strings.TrimSuffix(sb.String(), "\n")
}

func (n *Node) render(sb *strings.Builder, o renderOptions, prefix string) {
	parts := []string{fmt.Sprintf("<SpanNode name=%q", n.span.Name)}
	if o.spanID {
		parts = append(parts, "span_id="+n.span.SpanID.String())
	}
	if o.traceID {
		parts = append(parts, "trace_id="+n.span.TraceID.String())
	}
	if o.startTimestamp {
		ts := "none"
		if start, ok := n.StartTime(); ok {
			ts = start.Format(time.RFC3339Nano)
		}
		parts = append(parts, "start_timestamp="+ts)
	}
	if o.duration {
		d := "none"
		if dur, ok := n.Duration(); ok {
			d = dur.String()
		}
		parts = append(parts, "duration="+d)
	}

	if o.excludeChildren || len(n.children) == 0 {
		if len(n.children) > 0 {
			parts = append(parts, "children=...")
		}
		parts = append(parts, "/>")
		writeLine(sb, prefix, strings.Join(parts, " "))
		return
	}

	parts = append(parts, ">")
	writeLine(sb, prefix, strings.Join(parts, " "))
	for _, child := range n.children {
		child.render(sb, o, prefix+indentUnit)
	}
	writeLine(sb, prefix, "</SpanNode>")
}

func writeLine(sb *strings.Builder, prefix, line string) {
	sb.WriteString(prefix)
	sb.WriteString(line)
	sb.WriteByte('\n')
}

func (n *Node) String() string {
	if len(n.children) > 0 {
		return fmt.Sprintf("<SpanNode name=%q span_id=%s>...</SpanNode>", n.span.Name, n.span.SpanID)
	}
	return fmt.Sprintf("<SpanNode name=%q span_id=%s />", n.span.Name, n.span.SpanID)
}
