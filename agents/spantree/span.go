/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package spantree

import (
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Span is a finished unit of work as handed to Build.
// A zero StartTime or EndTime means the timestamp is absent.
type Span struct {
	TraceID    trace.TraceID        `json:"trace_id"`
	SpanID     trace.SpanID         `json:"span_id"`
	ParentID   trace.SpanID         `json:"parent_id,omitempty"` // Invalid (all zero) when there is no known parent
	Name       string               `json:"name"`
	StartTime  time.Time            `json:"start_time,omitempty"`
	EndTime    time.Time            `json:"end_time,omitempty"`
	Attributes []attribute.KeyValue `json:"attributes,omitempty"`
}

// HasParent reports whether the span references a parent span.
func (s Span) HasParent() bool {
	return s.ParentID.IsValid()
}

// Attribute returns the value stored under key.
// When a key is repeated the last value wins, matching OTel semantics.
func (s Span) Attribute(key string) (attribute.Value, bool) {
	for i := len(s.Attributes) - 1; i >= 0; i-- {
		if string(s.Attributes[i].Key) == key {
			return s.Attributes[i].Value, true
		}
	}
	return attribute.Value{}, false
}

// FromReadOnlySpan converts a span finished by the OTel SDK.
func FromReadOnlySpan(s sdktrace.ReadOnlySpan) Span {
	sc := s.SpanContext()
	out := Span{
		TraceID:    sc.TraceID(),
		SpanID:     sc.SpanID(),
		Name:       s.Name(),
		StartTime:  s.StartTime(),
		EndTime:    s.EndTime(),
		Attributes: slices.Clone(s.Attributes()),
	}
	if parent := s.Parent(); parent.HasSpanID() {
		out.ParentID = parent.SpanID()
	}
	return out
}

// FromReadOnlySpans converts a batch of SDK spans, keeping their order.
func FromReadOnlySpans(spans []sdktrace.ReadOnlySpan) []Span {
	out := make([]Span, 0, len(spans))
	for _, s := range spans {
		out = append(out, FromReadOnlySpan(s))
	}
	return out
}
