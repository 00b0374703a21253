// Package metrics exposes Prometheus collectors for the HTTP API and the task
// assignment endpoints.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the assignment and progress counters.
const (
	OutcomeOK          = "ok"
	OutcomeNoPending   = "no_pending"
	OutcomeNoTaxonomy  = "no_taxonomy"
	OutcomeNotFound    = "not_found"
	OutcomeInvalidID   = "invalid_id"
	OutcomeBadRequest  = "bad_request"
	OutcomeError       = "error"
	unknownRouteLabel  = "unknown"
	durationBucketsMin = 0.005
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	taskRequestsTotal          *prometheus.CounterVec
	progressUpdatesTotal       *prometheus.CounterVec
	assignmentDurationSeconds  prometheus.Histogram
	throttledRequestsTotal     *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		taskRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_task_requests_total",
				Help: "Next-task requests from workers, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		progressUpdatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_progress_updates_total",
				Help: "Progress reports from workers, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		assignmentDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scraper_task_assignment_duration_seconds",
				Help:    "Time spent selecting or creating the next task.",
				Buckets: prometheus.ExponentialBuckets(durationBucketsMin, 2, 10),
			},
		)

		throttledRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_throttled_total",
				Help: "Requests rejected by the per-client rate limiter, labeled by method.",
			},
			[]string{"method"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	if route == "" {
		route = unknownRouteLabel
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveTaskRequest records one next-task request and how long it took.
func ObserveTaskRequest(outcome string, duration time.Duration) {
	if taskRequestsTotal == nil {
		return
	}
	taskRequestsTotal.WithLabelValues(outcome).Inc()
	assignmentDurationSeconds.Observe(duration.Seconds())
}

// ObserveProgressUpdate records one progress report.
func ObserveProgressUpdate(outcome string) {
	if progressUpdatesTotal == nil {
		return
	}
	progressUpdatesTotal.WithLabelValues(outcome).Inc()
}

// ObserveThrottled records one request rejected by the rate limiter.
func ObserveThrottled(method string) {
	if throttledRequestsTotal == nil {
		return
	}
	throttledRequestsTotal.WithLabelValues(method).Inc()
}
