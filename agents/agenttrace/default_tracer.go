/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"

	"github.com/chainguard-dev/clog"
)

// NewDefaultTracer returns a tracer that logs each completed trace to the clog
// logger in ctx: a one-line summary at info, the full trace at debug, and
// failed runs at warn.
func NewDefaultTracer[T any](ctx context.Context) Tracer[T] {
	logger := clog.FromContext(ctx)

	return ByCode[T](func(trace *Trace[T]) {
		exec := trace.ExecContext
		l := logger.With(
			"trace_id", trace.ID,
			"dataset", exec.Dataset,
			"case", exec.Case,
			"attempt", exec.Attempt,
			"duration", trace.Duration(),
			"tool_calls", len(trace.ToolCalls),
		)
		if trace.Error != nil {
			l.Warn("Agent run failed", "error", trace.Error)
		} else {
			l.Info("Agent run completed")
		}
		l.Debug(trace.String())
	})
}
