// Package metrics holds the Prometheus instruments for dubbing runs.
//
// A nil *Metrics is valid and records nothing, so components can accept one
// unconditionally.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dubline"

// Metrics groups the collectors registered on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	ttsRequests   *prometheus.CounterVec
	ttsLatency    *prometheus.HistogramVec
	stageDuration *prometheus.HistogramVec
	speedRatio    *prometheus.HistogramVec
	outOfTol      *prometheus.CounterVec
	languages     *prometheus.CounterVec
	runs          *prometheus.CounterVec
	retries       *prometheus.CounterVec
}

// New registers every instrument on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		ttsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_requests_total",
			Help:      "Speech synthesis requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ttsLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tts_request_seconds",
			Help:      "Speech synthesis request latency.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"provider"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_seconds",
			Help:      "Wall time spent in each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"stage"}),
		speedRatio: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "alignment_speed_ratio",
			Help:      "Synthesized to reference duration ratio before stretching.",
			Buckets:   []float64{0.5, 0.75, 0.9, 0.95, 1, 1.05, 1.1, 1.25, 1.5, 2},
		}, []string{"strategy"}),
		outOfTol: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alignment_out_of_tolerance_total",
			Help:      "Aligned segments whose duration deviation exceeded tolerance.",
		}, []string{"strategy"}),
		languages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "languages_total",
			Help:      "Finished target languages by status.",
		}, []string{"status"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by status.",
		}, []string{"status"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Transient failures retried by operation.",
		}, []string{"operation"}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ttsRequests, m.ttsLatency, m.stageDuration, m.speedRatio,
		m.outOfTol, m.languages, m.runs, m.retries,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveTTS records one synthesis request.
func (m *Metrics) ObserveTTS(provider string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ttsRequests.WithLabelValues(provider, outcome).Inc()
	m.ttsLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ObserveStage records the time one stage took.
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// ObserveAlignment records an alignment ratio and whether it met tolerance.
func (m *Metrics) ObserveAlignment(strategy string, ratio float64, withinTolerance bool) {
	if m == nil {
		return
	}
	m.speedRatio.WithLabelValues(strategy).Observe(ratio)
	if !withinTolerance {
		m.outOfTol.WithLabelValues(strategy).Inc()
	}
}

// LanguageFinished counts a language outcome.
func (m *Metrics) LanguageFinished(status string) {
	if m == nil {
		return
	}
	m.languages.WithLabelValues(status).Inc()
}

// RunFinished counts a run outcome.
func (m *Metrics) RunFinished(status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
}

// Retried counts one retry of operation.
func (m *Metrics) Retried(operation string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(operation).Inc()
}
