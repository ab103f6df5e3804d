/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package report renders evaluation results as markdown.

ByCase expects the /{case}/{evaluator} observer layout produced by
evals.Evaluate and prints one table row per case and evaluator:

	obs := evals.NewNamespacedObserver(func(name string) *evals.ResultCollector {
		return evals.NewResultCollector(evals.NewMetricsObserver(ds.Name, name))
	})
	if _, err := evals.Evaluate(ctx, collector, ds, task, evaluators, obs, 4); err != nil {
		return err
	}
	out, failed := report.ByCase(obs, 0.8)
	fmt.Print(out)
	if failed {
		os.Exit(1)
	}

A row fails when any failure was recorded or its average grade is below the
threshold. Failures recorded on the case itself, such as the task returning an
error, appear under the (task) evaluator.

Generators only read the observer tree and are safe to call concurrently.
*/
package report
