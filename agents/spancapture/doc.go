/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package spancapture buffers finished spans per evaluation scope.

# Overview

A scope is a window during which every span started by one logical case is
attributed to that case. The active scope travels in context.Context, so
cases running concurrently on different goroutines never see each other's
spans and instrumented code does not need a collector handle:

	tree, err := spancapture.Capture(ctx, func(ctx context.Context) error {
		return runAgent(ctx, input)
	})
	if err != nil {
		...
	}
	if !tree.Any(spantree.Named("agent.tool_call")) {
		...
	}

Collector implements sdktrace.SpanProcessor. OnStart remembers which scope a
span was started in; OnEnd converts the finished span to a spantree.Span and
appends it to that scope's buffer. Spans started outside any scope are
dropped.

# Lifecycle

Default attaches a single Collector to the global tracer provider the first
time it is needed. The provider must accept span processors (an SDK
TracerProvider); anything else fails with ErrUnsupportedProvider rather than
silently capturing nothing. After Shutdown, Record reports ErrShutdown and
finished spans are dropped.
*/
package spancapture
