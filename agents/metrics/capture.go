/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Drop reasons recorded on the dropped spans counter.
const (
	ReasonNoScope     = "no_scope"
	ReasonScopeClosed = "scope_closed"
	ReasonShutdown    = "shutdown"
)

// AttributeEnricher returns base plus labels derived from ctx, e.g. the
// evaluation dataset a span was captured for.
type AttributeEnricher func(ctx context.Context, base []attribute.KeyValue) []attribute.KeyValue

// Capture provides OpenTelemetry metrics for scoped span capture.
// Instruments that fail to initialize degrade to no-ops.
type Capture struct {
	recorded     metric.Int64Counter
	dropped      metric.Int64Counter
	drained      metric.Int64Counter
	attrEnricher AttributeEnricher
}

// NewCapture creates capture metrics on the meter with the given name,
// taken from the global meter provider.
func NewCapture(meterName string) *Capture {
	return NewCaptureWithMeter(otel.Meter(meterName, metric.WithInstrumentationVersion("1.0.0")))
}

// NewCaptureWithMeter creates capture metrics on an explicit meter.
func NewCaptureWithMeter(meter metric.Meter) *Capture {
	recorded, err := meter.Int64Counter("spancapture.spans.recorded",
		metric.WithDescription("The number of finished spans buffered for a capture scope"),
		metric.WithUnit("{spans}"))
	if err != nil {
		slog.Warn("Failed to create recorded spans counter, metrics will be disabled", "error", err)
		recorded = noop.Int64Counter{}
	}

	dropped, err := meter.Int64Counter("spancapture.spans.dropped",
		metric.WithDescription("The number of finished spans not attributed to any capture scope"),
		metric.WithUnit("{spans}"))
	if err != nil {
		slog.Warn("Failed to create dropped spans counter, metrics will be disabled", "error", err)
		dropped = noop.Int64Counter{}
	}

	drained, err := meter.Int64Counter("spancapture.spans.drained",
		metric.WithDescription("The number of buffered spans handed back to callers"),
		metric.WithUnit("{spans}"))
	if err != nil {
		slog.Warn("Failed to create drained spans counter, metrics will be disabled", "error", err)
		drained = noop.Int64Counter{}
	}

	return &Capture{
		recorded: recorded,
		dropped:  dropped,
		drained:  drained,
	}
}

// SetAttributeEnricher sets the enricher called before each recording.
func (m *Capture) SetAttributeEnricher(enricher AttributeEnricher) {
	m.attrEnricher = enricher
}

func (m *Capture) attrs(ctx context.Context, base []attribute.KeyValue) metric.MeasurementOption {
	if m.attrEnricher != nil {
		base = m.attrEnricher(ctx, base)
	}
	return metric.WithAttributes(base...)
}

// RecordCaptured counts spans appended to a scope buffer.
func (m *Capture) RecordCaptured(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.recorded.Add(ctx, int64(n), m.attrs(ctx, nil))
}

// RecordDropped counts spans dropped for the given reason.
func (m *Capture) RecordDropped(ctx context.Context, reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.dropped.Add(ctx, int64(n), m.attrs(ctx, []attribute.KeyValue{attribute.String("reason", reason)}))
}

// RecordDrained counts spans returned by a drain.
func (m *Capture) RecordDrained(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.drained.Add(ctx, int64(n), m.attrs(ctx, nil))
}
