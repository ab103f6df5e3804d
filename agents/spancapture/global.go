/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package spancapture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"chainguard.dev/spanevals/agents/agenttrace"
	"chainguard.dev/spanevals/agents/metrics"
	"chainguard.dev/spanevals/agents/spantree"
	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnsupportedProvider is returned when a tracer provider cannot accept span
// processors, so spans could never reach a collector.
var ErrUnsupportedProvider = errors.New("tracer provider does not support span processors")

// Registrar is the part of *sdktrace.TracerProvider that Attach needs.
type Registrar interface {
	RegisterSpanProcessor(sdktrace.SpanProcessor)
}

// Attach creates a collector and registers it with tp.
func Attach(tp trace.TracerProvider, opts ...Option) (*Collector, error) {
	r, ok := tp.(Registrar)
	if !ok {
		return nil, fmt.Errorf("%w: %T (install an SDK tracer provider with otel.SetTracerProvider before capturing spans)", ErrUnsupportedProvider, tp)
	}
	c := New(opts...)
	r.RegisterSpanProcessor(c)
	return c, nil
}

const meterName = "chainguard.ai.agents.spancapture"

var (
	defaultMu        sync.Mutex
	defaultCollector *Collector
)

// Default returns the process-wide collector, attaching it to the global
// tracer provider on first use. A failed attach is not cached, so a later call
// succeeds once an SDK provider has been installed.
func Default() (*Collector, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultCollector != nil {
		return defaultCollector, nil
	}
	m := metrics.NewCapture(meterName)
	m.SetAttributeEnricher(executionLabels)
	c, err := Attach(otel.GetTracerProvider(), WithMetrics(m))
	if err != nil {
		return nil, err
	}
	defaultCollector = c
	return c, nil
}

// executionLabels adds the evaluation labels of the agent run in ctx, if any.
func executionLabels(ctx context.Context, base []attribute.KeyValue) []attribute.KeyValue {
	exec := agenttrace.GetExecutionContext(ctx)
	if exec == (agenttrace.ExecutionContext{}) {
		return base
	}
	return exec.EnrichAttributes(base)
}

// ShutdownDefault shuts down the process-wide collector, if any, and forgets
// it. The next call to Default attaches a new one. The shut down collector
// stays registered with its provider and drops everything it is handed.
func ShutdownDefault(ctx context.Context) error {
	defaultMu.Lock()
	c := defaultCollector
	defaultCollector = nil
	defaultMu.Unlock()

	if c == nil {
		return nil
	}
	clog.FromContext(ctx).Debug("Shutting down default span collector")
	return c.Shutdown(ctx)
}

// Capture runs fn in a new scope of the default collector and returns the
// tree of spans finished while it ran.
func Capture(ctx context.Context, fn func(context.Context) error) (*spantree.Tree, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	return c.Capture(ctx, fn)
}
