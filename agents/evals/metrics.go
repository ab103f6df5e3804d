/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evals

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "span_evaluations_total",
			Help: "Total number of span tree evaluations performed",
		},
		[]string{"dataset", "namespace"},
	)

	failureCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "span_evaluation_failures_total",
			Help: "Total number of failed span tree evaluations",
		},
		[]string{"dataset", "namespace"},
	)

	gradeGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "span_evaluation_grade",
			Help: "Most recent span tree evaluation grade (0.0-1.0)",
		},
		[]string{"dataset", "namespace"},
	)
)

// MetricsObserver is an Observer that exports Prometheus metrics.
type MetricsObserver struct {
	evalCounter prometheus.Counter
	failCounter prometheus.Counter
	gradeGauge  prometheus.Gauge
	total       atomic.Int64
}

// NewMetricsObserver creates an observer labelled with dataset and namespace.
func NewMetricsObserver(dataset, namespace string) *MetricsObserver {
	labels := prometheus.Labels{"dataset": dataset, "namespace": namespace}
	return &MetricsObserver{
		evalCounter: evaluationCounter.With(labels),
		failCounter: failureCounter.With(labels),
		gradeGauge:  gradeGauge.With(labels),
	}
}

// MetricsFactory returns a NamespacedObserver factory for dataset.
func MetricsFactory(dataset string) func(string) *MetricsObserver {
	return func(namespace string) *MetricsObserver {
		return NewMetricsObserver(dataset, namespace)
	}
}

func (m *MetricsObserver) Increment() {
	m.total.Add(1)
	m.evalCounter.Inc()
}

func (m *MetricsObserver) Fail(string) { m.failCounter.Inc() }

func (m *MetricsObserver) Grade(score float64, _ string) { m.gradeGauge.Set(score) }

// Log is a no-op.
func (m *MetricsObserver) Log(string) {}

func (m *MetricsObserver) Total() int64 { return m.total.Load() }
