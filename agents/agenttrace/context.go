/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"

	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel/attribute"
)

// ExecutionContext identifies the evaluation case an agent run belongs to.
type ExecutionContext struct {
	Dataset string `json:"dataset,omitempty"` // Dataset the case was loaded from
	Case    string `json:"case,omitempty"`    // Case name, unique within the dataset
	Attempt int    `json:"attempt,omitempty"` // 1-based attempt for repeated runs
}

// SpanAttributes returns the attributes stamped on every agent.execution span.
func (e ExecutionContext) SpanAttributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if e.Dataset != "" {
		attrs = append(attrs, attribute.String("eval.dataset", e.Dataset))
	}
	if e.Case != "" {
		attrs = append(attrs, attribute.String("eval.case", e.Case))
	}
	if e.Attempt > 0 {
		attrs = append(attrs, attribute.Int("eval.attempt", e.Attempt))
	}
	return attrs
}

// EnrichAttributes appends the bounded labels of e to base for use on metrics.
//
// The case name is left out: datasets grow without bound and every case would
// become its own time series. It is still recorded on spans.
func (e ExecutionContext) EnrichAttributes(base []attribute.KeyValue) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, len(base), len(base)+2)
	copy(attrs, base)
	if e.Dataset != "" {
		attrs = append(attrs, attribute.String("dataset", e.Dataset))
	}
	return append(attrs, attribute.Int("attempt", e.Attempt))
}

type contextKey string

const (
	executionContextKey contextKey = "execution_context"
	clockKey            contextKey = "clock"
)

// WithExecutionContext adds execution context to the Go context
func WithExecutionContext(ctx context.Context, execCtx ExecutionContext) context.Context {
	return context.WithValue(ctx, executionContextKey, execCtx)
}

// GetExecutionContext retrieves execution context from the Go context
func GetExecutionContext(ctx context.Context) ExecutionContext {
	if execCtx, ok := ctx.Value(executionContextKey).(ExecutionContext); ok {
		return execCtx
	}
	return ExecutionContext{}
}

// WithClock sets the clock used for trace and span timestamps started from ctx.
func WithClock(ctx context.Context, clock clockz.Clock) context.Context {
	return context.WithValue(ctx, clockKey, clock)
}

func clockFromContext(ctx context.Context) clockz.Clock {
	if clock, ok := ctx.Value(clockKey).(clockz.Clock); ok && clock != nil {
		return clock
	}
	return clockz.RealClock
}
