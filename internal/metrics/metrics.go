// Package metrics exposes Prometheus instrumentation for scenario runs,
// simulation layers, and scorers, following the teacher's promauto
// registration-at-package-init convention.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScenariosActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voxharness_scenarios_active",
		Help: "Scenario runs currently executing",
	})

	ScenariosTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxharness_scenarios_total",
		Help: "Total scenario runs, by outcome",
	}, []string{"outcome"})

	DispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voxharness_dispatch_duration_seconds",
		Help:    "Per-action dispatch latency",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
	}, []string{"action"})

	DispatchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxharness_dispatch_errors_total",
		Help: "Dispatch exceptions captured as failed assertions, by action",
	}, []string{"action"})

	AssertionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxharness_assertions_total",
		Help: "Assertions recorded, by outcome",
	}, []string{"outcome"})

	ToolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxharness_tool_calls_total",
		Help: "Mock tool invocations, by tool and outcome",
	}, []string{"tool", "outcome"})

	ToolCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voxharness_tool_call_latency_seconds",
		Help:    "Simulated mock tool call latency",
		Buckets: []float64{0.01, 0.05, 0.1, 0.3, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"tool"})

	FirstByteLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voxharness_first_byte_latency_seconds",
		Help:    "Simulated clock time at which each AUDIO response event was received",
		Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1.0, 1.5, 2.0, 5.0},
	})

	BargeInsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxharness_barge_ins_total",
		Help: "Barge-in simulations, by whether the SUT handled them",
	}, []string{"handled"})

	ScorerScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voxharness_scorer_score",
		Help: "Most recent score emitted by each evaluation dimension",
	}, []string{"dimension"})

	RegressionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxharness_regressions_total",
		Help: "Regression-baseline comparisons, by metric and direction",
	}, []string{"metric", "direction"})
)
