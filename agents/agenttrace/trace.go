/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Span names and attribute keys emitted by this package.
const (
	ExecutionSpanName = "agent.execution"
	ToolCallSpanName  = "agent.tool_call"

	AttrPrompt   = attribute.Key("agent.prompt")
	AttrToolName = attribute.Key("tool.name")
	AttrToolID   = attribute.Key("tool.id")
	AttrError    = attribute.Key("error")
)

const instrumentationName = "chainguard.ai.agents.agenttrace"

func tracer() oteltrace.Tracer {
	return otel.Tracer(instrumentationName, oteltrace.WithInstrumentationVersion("1.0.0"))
}

// ToolCall is a single tool invocation within a trace.
type ToolCall[T any] struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Params    map[string]any `json:"params"`
	Result    any            `json:"result"`
	Error     error          `json:"error,omitempty"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`

	trace *Trace[T]
	mu    sync.Mutex
	span  oteltrace.Span
}

// Trace is one agent run from prompt to result. It is backed by an
// agent.execution span; each tool call is a child agent.tool_call span.
type Trace[T any] struct {
	ID          string           `json:"id"`
	InputPrompt string           `json:"input_prompt"`
	ExecContext ExecutionContext `json:"exec_context,omitempty"`
	ToolCalls   []*ToolCall[T]   `json:"tool_calls"`
	Result      T                `json:"result"`
	Error       error            `json:"error,omitempty"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     time.Time        `json:"end_time"`
	Metadata    map[string]any   `json:"metadata,omitempty"`

	tracer Tracer[T]
	clock  clockz.Clock
	mu     sync.Mutex
	ctx    context.Context
	span   oteltrace.Span
}

func newTraceWithTracer[T any](ctx context.Context, tr Tracer[T], prompt string) *Trace[T] {
	execCtx := GetExecutionContext(ctx)
	clock := clockFromContext(ctx)
	start := clock.Now()

	attrs := append([]attribute.KeyValue{AttrPrompt.String(prompt)}, execCtx.SpanAttributes()...)
	ctx, span := tracer().Start(ctx, ExecutionSpanName,
		oteltrace.WithAttributes(attrs...),
		oteltrace.WithTimestamp(start),
	)

	id := uuid.NewString()
	if sc := span.SpanContext(); sc.HasSpanID() {
		id = sc.SpanID().String()
	}

	return &Trace[T]{
		ID:          id,
		InputPrompt: prompt,
		ExecContext: execCtx,
		ToolCalls:   []*ToolCall[T]{},
		StartTime:   start,
		Metadata:    make(map[string]any),
		tracer:      tr,
		clock:       clock,
		ctx:         ctx,
		span:        span,
	}
}

// Context returns the context of the trace's execution span. Work started from
// it is parented under the trace.
func (t *Trace[T]) Context() context.Context {
	return t.ctx
}

// StartToolCall starts a tool call span under the trace.
func (t *Trace[T]) StartToolCall(id, name string, params map[string]any) *ToolCall[T] {
	start := t.clock.Now()
	_, span := tracer().Start(t.ctx, ToolCallSpanName,
		oteltrace.WithAttributes(AttrToolName.String(name), AttrToolID.String(id)),
		oteltrace.WithTimestamp(start),
	)

	return &ToolCall[T]{
		ID:        id,
		Name:      name,
		Params:    params,
		StartTime: start,
		trace:     t,
		span:      span,
	}
}

// BadToolCall records a tool call that never ran because its arguments were
// invalid or the tool is unknown.
func (t *Trace[T]) BadToolCall(id, name string, params map[string]any, err error) {
	now := t.clock.Now()
	_, span := tracer().Start(t.ctx, ToolCallSpanName,
		oteltrace.WithAttributes(
			AttrToolName.String(name),
			AttrToolID.String(id),
			AttrError.String(err.Error()),
		),
		oteltrace.WithTimestamp(now),
	)
	span.SetStatus(codes.Error, err.Error())
	span.End(oteltrace.WithTimestamp(now))

	tc := &ToolCall[T]{
		ID:        id,
		Name:      name,
		Params:    params,
		StartTime: now,
		EndTime:   now,
		Error:     err,
		trace:     t,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.ToolCalls = append(t.ToolCalls, tc)
}

// SetMetadata records a key on the trace and as a span attribute on the
// execution span when the value has a scalar attribute form.
func (t *Trace[T]) SetMetadata(key string, value any) {
	t.mu.Lock()
	t.Metadata[key] = value
	t.mu.Unlock()

	if kv, ok := scalarAttribute(key, value); ok {
		t.span.SetAttributes(kv)
	}
}

func scalarAttribute(key string, value any) (attribute.KeyValue, bool) {
	k := attribute.Key("metadata." + key)
	switch v := value.(type) {
	case string:
		return k.String(v), true
	case bool:
		return k.Bool(v), true
	case int:
		return k.Int(v), true
	case int64:
		return k.Int64(v), true
	case float64:
		return k.Float64(v), true
	default:
		return attribute.KeyValue{}, false
	}
}

func endSpan(span oteltrace.Span, err error, at time.Time) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err, oteltrace.WithTimestamp(at))
		span.SetAttributes(AttrError.String(err.Error()))
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(oteltrace.WithTimestamp(at))
}

// Complete ends the tool call span and adds the call to its trace.
func (tc *ToolCall[T]) Complete(result any, err error) {
	tc.mu.Lock()
	tc.Result = result
	tc.Error = err
	tc.EndTime = tc.trace.clock.Now()
	trace, span, end := tc.trace, tc.span, tc.EndTime
	tc.mu.Unlock()

	endSpan(span, err, end)

	trace.mu.Lock()
	defer trace.mu.Unlock()
	trace.ToolCalls = append(trace.ToolCalls, tc)
}

// Duration returns how long the tool call ran, or has run so far.
func (tc *ToolCall[T]) Duration() time.Duration {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return elapsed(tc.trace.clock, tc.StartTime, tc.EndTime)
}

// Complete ends the execution span and hands the trace to its tracer.
func (t *Trace[T]) Complete(result T, err error) {
	t.mu.Lock()
	t.Result = result
	t.Error = err
	t.EndTime = t.clock.Now()
	tr, span, end := t.tracer, t.span, t.EndTime
	t.mu.Unlock()

	endSpan(span, err, end)
	tr.RecordTrace(t)
}

// Duration returns how long the trace ran, or has run so far.
func (t *Trace[T]) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return elapsed(t.clock, t.StartTime, t.EndTime)
}

func elapsed(clock clockz.Clock, start, end time.Time) time.Duration {
	if end.IsZero() {
		return clock.Now().Sub(start)
	}
	return end.Sub(start)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// String returns a multi-line summary for logs.
func (t *Trace[T]) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Trace %s ===\n", t.ID)
	if t.ExecContext.Case != "" {
		fmt.Fprintf(&sb, "Case: %s/%s\n", t.ExecContext.Dataset, t.ExecContext.Case)
	}
	fmt.Fprintf(&sb, "Prompt: %q\n", t.InputPrompt)
	fmt.Fprintf(&sb, "Duration: %v\n", elapsed(t.clock, t.StartTime, t.EndTime))

	if len(t.ToolCalls) == 0 {
		sb.WriteString("\nNo tool calls\n")
	} else {
		fmt.Fprintf(&sb, "\nTool Calls (%d):\n", len(t.ToolCalls))
		for i, tc := range t.ToolCalls {
			fmt.Fprintf(&sb, "  [%d] %s (ID: %s) %v\n", i+1, tc.Name, tc.ID, elapsed(t.clock, tc.StartTime, tc.EndTime))
			for _, k := range slices.Sorted(maps.Keys(tc.Params)) {
				fmt.Fprintf(&sb, "      %s: %v\n", k, tc.Params[k])
			}
			switch {
			case tc.Error != nil:
				fmt.Fprintf(&sb, "      Error: %v\n", tc.Error)
			case tc.Result != nil:
				fmt.Fprintf(&sb, "      Result: %s\n", truncate(fmt.Sprint(tc.Result), 200))
			}
		}
	}

	sb.WriteString("\nCompletion:\n")
	if t.Error != nil {
		fmt.Fprintf(&sb, "  Error: %v\n", t.Error)
	} else {
		fmt.Fprintf(&sb, "  Result: %s\n", truncate(fmt.Sprint(t.Result), 500))
	}

	if len(t.Metadata) > 0 {
		sb.WriteString("\nMetadata:\n")
		for _, k := range slices.Sorted(maps.Keys(t.Metadata)) {
			fmt.Fprintf(&sb, "  %s: %v\n", k, t.Metadata[k])
		}
	}
	return sb.String()
}
