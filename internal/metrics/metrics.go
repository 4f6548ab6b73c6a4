// Package metrics exposes Prometheus instrumentation for the coach server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the form coach.
type Metrics struct {
	registry             *prometheus.Registry
	requestsTotal        prometheus.Counter
	errorsTotal          prometheus.Counter
	framesTotal          prometheus.Counter
	repsTotal            prometheus.Counter
	feedbackTotal        prometheus.Counter
	estimatorErrorsTotal prometheus.Counter
	activeSessions       prometheus.Gauge
}

// New creates and registers Prometheus metrics for the coach server.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "formcoach_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "formcoach_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	framesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "formcoach_frames_total",
		Help: "Total number of pose frames processed",
	})
	repsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "formcoach_reps_total",
		Help: "Total number of reps counted across all sessions",
	})
	feedbackTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "formcoach_feedback_total",
		Help: "Total number of feedback windows published",
	})
	estimatorErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "formcoach_estimator_errors_total",
		Help: "Total number of failed pose estimator calls",
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "formcoach_active_sessions",
		Help: "Number of live WebSocket coaching sessions",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		framesTotal,
		repsTotal,
		feedbackTotal,
		estimatorErrorsTotal,
		activeSessions,
	)

	return &Metrics{
		registry:             registry,
		requestsTotal:        requestsTotal,
		errorsTotal:          errorsTotal,
		framesTotal:          framesTotal,
		repsTotal:            repsTotal,
		feedbackTotal:        feedbackTotal,
		estimatorErrorsTotal: estimatorErrorsTotal,
		activeSessions:       activeSessions,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the HTTP error counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncFrames increments the processed frame counter.
func (m *Metrics) IncFrames() {
	m.framesTotal.Inc()
}

// IncReps increments the counted rep counter.
func (m *Metrics) IncReps() {
	m.repsTotal.Inc()
}

// IncFeedback increments the published feedback counter.
func (m *Metrics) IncFeedback() {
	m.feedbackTotal.Inc()
}

// IncEstimatorErrors increments the estimator failure counter.
func (m *Metrics) IncEstimatorErrors() {
	m.estimatorErrorsTotal.Inc()
}

// SetActiveSessions sets the live session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
