/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package report

import (
	"fmt"
	"strings"

	"chainguard.dev/spanevals/agents/evals"
)

// taskRow names the row for failures recorded on the case itself.
const taskRow = "(task)"

type row struct {
	caseName  string
	evaluator string
	runs      int64
	failures  []string
	grade     float64
	graded    bool
}

func (r row) failed(threshold float64) bool {
	return len(r.failures) > 0 || (r.graded && r.grade < threshold)
}

// ByCase renders one table row per case and evaluator, for observer trees laid
// out as /{case}/{evaluator} (as produced by evals.Evaluate), followed by the
// failure messages.
func ByCase(obs *evals.NamespacedObserver[*evals.ResultCollector], threshold float64) (string, bool) {
	var rows []row
	obs.Walk(func(path string, rc *evals.ResultCollector) {
		parts := strings.Split(strings.Trim(path, "/"), "/")
		r := row{runs: rc.Total(), failures: rc.Failures()}
		r.grade, r.graded = rc.AverageGrade()

		switch {
		case len(parts) == 1 && parts[0] != "":
			// Case namespaces only carry task failures.
			if len(r.failures) == 0 {
				return
			}
			r.caseName, r.evaluator = parts[0], taskRow
		case len(parts) >= 2:
			r.caseName, r.evaluator = parts[0], strings.Join(parts[1:], "/")
		default:
			return
		}
		rows = append(rows, r)
	})

	var sb strings.Builder
	sb.WriteString("## Evaluation Report\n\n")
	if len(rows) == 0 {
		sb.WriteString("No evaluations recorded.\n")
		return sb.String(), false
	}

	table := newMarkdownTable(&sb, []int{2, 3, 4}, "Case", "Evaluator", "Runs", "Failures", "Grade", "Status")
	anyFailed := false
	passed := 0
	for _, r := range rows {
		grade := "-"
		if r.graded {
			grade = fmt.Sprintf("%.2f", r.grade)
		}
		status := "PASS"
		if r.failed(threshold) {
			status = "FAIL"
			anyFailed = true
		} else {
			passed++
		}
		_ = table.Append([]string{r.caseName, r.evaluator, fmt.Sprint(r.runs), fmt.Sprint(len(r.failures)), grade, status})
	}
	_ = table.Render()

	fmt.Fprintf(&sb, "\n%d/%d passed (threshold %.2f)\n", passed, len(rows), threshold)

	if anyFailed {
		sb.WriteString("\n### Failures\n\n")
		for _, r := range rows {
			for _, msg := range r.failures {
				fmt.Fprintf(&sb, "- %s/%s: %s\n", r.caseName, r.evaluator, msg)
			}
			if r.graded && r.grade < threshold {
				fmt.Fprintf(&sb, "- %s/%s: grade %.2f below threshold %.2f\n", r.caseName, r.evaluator, r.grade, threshold)
			}
		}
	}
	return sb.String(), anyFailed
}
