package rules

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the rules engine.
type Metrics struct {
	registry *prometheus.Registry

	// Parse and evaluation outcomes
	parsesTotal *prometheus.CounterVec
	evalsTotal  *prometheus.CounterVec

	// Errors by pipeline stage and error kind
	errorsTotal *prometheus.CounterVec

	// Grammar lifecycle
	reloadsTotal  *prometheus.CounterVec
	activeVersion prometheus.Gauge

	// Latency
	compileDuration prometheus.Histogram
	evalDuration    prometheus.Histogram
}

// NewMetrics creates engine metrics registered with the given registry. If
// registry is nil a private registry is created; expose it over HTTP with
// promhttp.HandlerFor(m.Registry(), ...).
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		parsesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "designer",
				Subsystem: "rules",
				Name:      "parses_total",
				Help:      "Total number of rule parses by outcome",
			},
			[]string{"outcome"},
		),

		evalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "designer",
				Subsystem: "rules",
				Name:      "evals_total",
				Help:      "Total number of rule evaluations by outcome",
			},
			[]string{"outcome"},
		),

		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "designer",
				Subsystem: "rules",
				Name:      "errors_total",
				Help:      "Total number of errors by stage and kind",
			},
			[]string{"stage", "kind"},
		),

		reloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "designer",
				Subsystem: "rules",
				Name:      "grammar_reloads_total",
				Help:      "Total number of grammar reload attempts by outcome",
			},
			[]string{"outcome"},
		),

		activeVersion: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "designer",
				Subsystem: "rules",
				Name:      "active_grammar_version",
				Help:      "Version number of the currently active grammar",
			},
		),

		compileDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "designer",
				Subsystem: "rules",
				Name:      "grammar_compile_duration_seconds",
				Help:      "Duration of grammar validation and compilation in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
		),

		evalDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "designer",
				Subsystem: "rules",
				Name:      "eval_duration_seconds",
				Help:      "Duration of rule evaluation in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
		),
	}
}

// Registry returns the Prometheus registry holding the engine collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordParse records a parse attempt.
func (m *Metrics) RecordParse(ok bool) {
	m.parsesTotal.WithLabelValues(outcome(ok)).Inc()
}

// RecordEval records an evaluation attempt and its duration.
func (m *Metrics) RecordEval(ok bool, duration time.Duration) {
	m.evalsTotal.WithLabelValues(outcome(ok)).Inc()
	m.evalDuration.Observe(duration.Seconds())
}

// RecordError records a classified error from one pipeline stage.
func (m *Metrics) RecordError(stage, kind string) {
	m.errorsTotal.WithLabelValues(stage, kind).Inc()
}

// RecordCompile records the duration of one validate-and-compile pass.
func (m *Metrics) RecordCompile(duration time.Duration) {
	m.compileDuration.Observe(duration.Seconds())
}

// RecordReload records a grammar reload attempt.
func (m *Metrics) RecordReload(ok bool) {
	m.reloadsTotal.WithLabelValues(outcome(ok)).Inc()
}

// SetActiveVersion updates the active grammar version gauge.
func (m *Metrics) SetActiveVersion(version int) {
	m.activeVersion.Set(float64(version))
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
