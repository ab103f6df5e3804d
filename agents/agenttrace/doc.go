/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package agenttrace instruments agent runs as OpenTelemetry spans.

Each Trace opens an agent.execution span and each tool call an
agent.tool_call child span, so a span collector scoped to an evaluation case
(see spancapture) sees the whole run as one tree:

	agent.execution  agent.prompt, eval.dataset, eval.case, eval.attempt
	└── agent.tool_call  tool.name, tool.id, error (on failure)

# Usage

Attach the evaluation case to the context and start traces from it:

	ctx = agenttrace.WithExecutionContext(ctx, agenttrace.ExecutionContext{
		Dataset: "triage",
		Case:    "flaky-test",
		Attempt: 1,
	})

	tracer := agenttrace.ByCode[string](func(trace *agenttrace.Trace[string]) {
		log.Printf("Trace completed: %s", trace.ID)
	})
	ctx = agenttrace.WithTracer[string](ctx, tracer)

	trace := agenttrace.StartTrace[string](ctx, "Find the failing test")
	call := trace.StartToolCall("tc1", "read_file", map[string]any{"path": "ci.log"})
	call.Complete("...", nil)
	trace.Complete("TestFoo is flaky", nil)

Span timestamps come from the clock set with WithClock, which defaults to the
real clock. Tests inject a clockz fake clock to get exact durations.
*/
package agenttrace
