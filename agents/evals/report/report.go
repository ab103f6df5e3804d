/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package report

import (
	"chainguard.dev/spanevals/agents/evals"
)

// Generator renders an observer tree. It returns the report and whether any
// evaluation failed or graded below threshold.
type Generator func(obs *evals.NamespacedObserver[*evals.ResultCollector], threshold float64) (string, bool)

var _ Generator = ByCase
