/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package spancapture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"chainguard.dev/spanevals/agents/metrics"
	"chainguard.dev/spanevals/agents/spantree"
	"github.com/chainguard-dev/clog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// ErrShutdown is returned by Record once the collector has been shut down.
var ErrShutdown = errors.New("span collector is shut down")

// spanKey identifies a started span until it ends.
type spanKey struct {
	traceID trace.TraceID
	spanID  trace.SpanID
}

func keyOf(sc trace.SpanContext) spanKey {
	return spanKey{traceID: sc.TraceID(), spanID: sc.SpanID()}
}

// Collector buffers finished spans per scope.
// Safe for concurrent use by multiple goroutines.
type Collector struct {
	mu      sync.Mutex // guards scopes and pending
	scopes  map[ScopeID]*scope
	pending map[spanKey]ScopeID // started, not yet ended

	stopped atomic.Bool
	metrics *metrics.Capture
}

var _ sdktrace.SpanProcessor = (*Collector)(nil)

// Option configures a Collector.
type Option func(*Collector)

// WithMetrics records capture counters on m.
func WithMetrics(m *metrics.Capture) Option {
	return func(c *Collector) { c.metrics = m }
}

// New creates an empty collector. It captures nothing from OTel until it is
// registered with a tracer provider (see Attach).
func New(opts ...Option) *Collector {
	c := &Collector{
		scopes:  make(map[ScopeID]*scope),
		pending: make(map[spanKey]ScopeID),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin opens a fresh scope and returns a context in which it is active.
func (c *Collector) Begin(ctx context.Context) (context.Context, ScopeID) {
	id := newScopeID()

	c.mu.Lock()
	c.scopes[id] = &scope{ctx: context.WithoutCancel(ctx), active: true}
	c.mu.Unlock()

	return WithScope(ctx, id), id
}

// End marks the scope as no longer active. Spans started in it afterwards are
// dropped; spans already captured, or started earlier and still running, are
// kept until the scope is drained.
func (c *Collector) End(id ScopeID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.scopes[id]; ok {
		s.active = false
	}
}

// Record appends spans to the scope active in ctx.
// Without an active scope the spans are dropped and Record returns nil.
// After Shutdown it returns ErrShutdown.
func (c *Collector) Record(ctx context.Context, spans ...spantree.Span) error {
	if c.stopped.Load() {
		c.metrics.RecordDropped(ctx, metrics.ReasonShutdown, len(spans))
		clog.FromContext(ctx).With("spans", len(spans)).Warn("Span collector is shut down, dropping spans")
		return ErrShutdown
	}

	id, ok := ScopeFromContext(ctx)
	if !ok {
		c.metrics.RecordDropped(ctx, metrics.ReasonNoScope, len(spans))
		return nil
	}

	c.appendTo(ctx, id, spans, true)
	return nil
}

// appendTo adds spans to the scope buffer. With requireActive, spans for a
// scope that has ended are dropped.
func (c *Collector) appendTo(ctx context.Context, id ScopeID, spans []spantree.Span, requireActive bool) {
	c.mu.Lock()
	s, ok := c.scopes[id]
	captured := ok && (s.active || !requireActive)
	if captured {
		s.spans = append(s.spans, spans...)
	}
	c.mu.Unlock()

	if !captured {
		c.metrics.RecordDropped(ctx, metrics.ReasonScopeClosed, len(spans))
		clog.FromContext(ctx).With("scope", id).With("spans", len(spans)).Debug("Dropping spans for closed scope")
		return
	}
	c.metrics.RecordCaptured(ctx, len(spans))
}

// Drain returns and clears the spans buffered for id, in the order they were
// recorded. A scope that has ended is forgotten.
func (c *Collector) Drain(id ScopeID) []spantree.Span {
	c.mu.Lock()
	s, ok := c.scopes[id]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	spans := s.spans
	s.spans = nil
	if !s.active {
		c.forgetLocked(id)
	}
	c.mu.Unlock()

	c.metrics.RecordDrained(context.Background(), len(spans))
	return spans
}

// DrainAll returns and clears every scope buffer.
func (c *Collector) DrainAll() map[ScopeID][]spantree.Span {
	c.mu.Lock()
	out := make(map[ScopeID][]spantree.Span, len(c.scopes))
	total := 0
	for id, s := range c.scopes {
		if len(s.spans) > 0 {
			out[id] = s.spans
			total += len(s.spans)
		}
		s.spans = nil
		if !s.active {
			c.forgetLocked(id)
		}
	}
	c.mu.Unlock()

	c.metrics.RecordDrained(context.Background(), total)
	return out
}

// Peek returns a copy of the spans buffered so far for id without clearing them.
func (c *Collector) Peek(id ScopeID) []spantree.Span {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.scopes[id]
	if !ok || len(s.spans) == 0 {
		return nil
	}
	out := make([]spantree.Span, len(s.spans))
	copy(out, s.spans)
	return out
}

// forgetLocked drops the scope and any span still pending for it.
// Must be called with c.mu held.
func (c *Collector) forgetLocked(id ScopeID) {
	delete(c.scopes, id)
	for k, owner := range c.pending {
		if owner == id {
			delete(c.pending, k)
		}
	}
}

// Capture runs fn in a new scope and returns the tree of spans finished in it.
// The scope is always ended and drained, also when fn fails or panics; fn's
// error is returned alongside the tree.
func (c *Collector) Capture(ctx context.Context, fn func(context.Context) error) (tree *spantree.Tree, err error) {
	ctx, id := c.Begin(ctx)
	defer func() {
		c.End(id)
		tree = spantree.Build(c.Drain(id))
	}()
	return nil, fn(ctx)
}

// OnStart implements sdktrace.SpanProcessor.
func (c *Collector) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	if c.stopped.Load() {
		return
	}
	id, ok := ScopeFromContext(parent)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if sc, ok := c.scopes[id]; ok && sc.active {
		c.pending[keyOf(s.SpanContext())] = id
	}
}

// OnEnd implements sdktrace.SpanProcessor.
func (c *Collector) OnEnd(s sdktrace.ReadOnlySpan) {
	ctx := context.Background()
	key := keyOf(s.SpanContext())

	c.mu.Lock()
	id, ok := c.pending[key]
	delete(c.pending, key)
	if sc, found := c.scopes[id]; ok && found {
		ctx = sc.ctx
	}
	c.mu.Unlock()

	switch {
	case c.stopped.Load():
		c.metrics.RecordDropped(ctx, metrics.ReasonShutdown, 1)
	case !ok:
		c.metrics.RecordDropped(ctx, metrics.ReasonNoScope, 1)
	default:
		c.appendTo(ctx, id, []spantree.Span{spantree.FromReadOnlySpan(s)}, false)
	}
}

// Shutdown implements sdktrace.SpanProcessor. It is idempotent; buffered
// spans can still be drained afterwards.
func (c *Collector) Shutdown(context.Context) error {
	c.stopped.Store(true)
	return nil
}

// ForceFlush implements sdktrace.SpanProcessor. Spans are buffered
// synchronously, so there is nothing to flush.
func (c *Collector) ForceFlush(context.Context) error {
	return nil
}
