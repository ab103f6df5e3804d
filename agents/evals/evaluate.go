/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"context"
	"fmt"

	"chainguard.dev/spanevals/agents/agenttrace"
	"chainguard.dev/spanevals/agents/spancapture"
	"chainguard.dev/spanevals/agents/spantree"
	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
)

// Task runs the agent under test for one case. Spans it starts from ctx are
// captured for that case.
type Task func(ctx context.Context, c Case) error

// CaseResult is the outcome of running one case.
type CaseResult struct {
	Case Case
	Tree *spantree.Tree
	Err  error // returned by the task
}

// Evaluate runs task for every case in d, at most concurrency at a time (no
// limit when concurrency <= 0). Each case runs in its own capture scope of
// collector; its span tree is handed to every evaluator under the observer
// namespace /{case}/{evaluator}. A task error is reported as a failure of the
// case namespace and does not stop other cases.
//
// Results are returned in dataset order. The error is non-nil only when ctx
// is cancelled.
func Evaluate[O Observer](
	ctx context.Context,
	collector *spancapture.Collector,
	d Dataset,
	task Task,
	evaluators map[string]SpanTreeCallback,
	observer *NamespacedObserver[O],
	concurrency int,
) ([]CaseResult, error) {
	results := make([]CaseResult, len(d.Cases))

	eg, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		eg.SetLimit(concurrency)
	}
	for i, c := range d.Cases {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = runCase(ctx, collector, d.Name, c, task, evaluators, observer.Child(c.Name))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return results, fmt.Errorf("evaluating %s: %w", d.Name, err)
	}
	return results, nil
}

func runCase[O Observer](
	ctx context.Context,
	collector *spancapture.Collector,
	dataset string,
	c Case,
	task Task,
	evaluators map[string]SpanTreeCallback,
	obs *NamespacedObserver[O],
) CaseResult {
	log := clog.FromContext(ctx).With("dataset", dataset, "case", c.Name)
	ctx = clog.WithLogger(ctx, log)
	ctx = agenttrace.WithExecutionContext(ctx, agenttrace.ExecutionContext{
		Dataset: dataset,
		Case:    c.Name,
		Attempt: 1,
	})

	tree, err := collector.Capture(ctx, func(ctx context.Context) error {
		return task(ctx, c)
	})
	obs.Increment()
	if err != nil {
		log.With("error", err).Warn("Case task failed")
		obs.Fail(fmt.Sprintf("task error: %v", err))
	}
	log.With("spans", tree.Len()).Debug("Captured case spans")

	for _, cb := range BuildCallbacks(obs, evaluators) {
		cb(tree)
	}
	return CaseResult{Case: c, Tree: tree, Err: err}
}
