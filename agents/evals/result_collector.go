/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"slices"
	"sync"
)

// Grade is a score with the reasoning behind it.
type Grade struct {
	Score     float64
	Reasoning string
}

// ResultCollector records failures and grades while forwarding to an inner
// Observer. Failures are forwarded as logs, so the inner observer (e.g. a
// *testing.T) does not fail on its own; reports decide from the collected data.
type ResultCollector struct {
	inner Observer

	mu       sync.Mutex
	failures []string
	grades   []Grade
}

// NewResultCollector wraps inner.
func NewResultCollector(inner Observer) *ResultCollector {
	return &ResultCollector{inner: inner}
}

func (r *ResultCollector) Fail(msg string) {
	r.inner.Log(msg)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, msg)
}

func (r *ResultCollector) Log(msg string) { r.inner.Log(msg) }

func (r *ResultCollector) Grade(score float64, reasoning string) {
	r.inner.Grade(score, reasoning)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.grades = append(r.grades, Grade{Score: score, Reasoning: reasoning})
}

func (r *ResultCollector) Increment()   { r.inner.Increment() }
func (r *ResultCollector) Total() int64 { return r.inner.Total() }

// Failures returns a copy of the collected failure messages.
func (r *ResultCollector) Failures() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.failures)
}

// Grades returns a copy of the collected grades.
func (r *ResultCollector) Grades() []Grade {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.grades)
}

// AverageGrade returns the mean score, and false when nothing was graded.
func (r *ResultCollector) AverageGrade() (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.grades) == 0 {
		return 0, false
	}
	var sum float64
	for _, g := range r.grades {
		sum += g.Score
	}
	return sum / float64(len(r.grades)), true
}
