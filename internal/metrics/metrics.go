// Package metrics holds the Prometheus collectors for the contact service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contact"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	tierAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "tier_attempts_total",
			Help:      "Write attempts per storage tier and outcome.",
		},
		[]string{"tier", "backend", "outcome"},
	)

	tierDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "tier_duration_seconds",
			Help:      "Duration of individual tier write attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
		[]string{"tier", "backend"},
	)

	persisted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "submissions_total",
			Help:      "Submissions by the tier that finally persisted them (\"none\" when every tier failed).",
		},
		[]string{"tier"},
	)

	validationRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "validation_errors_total",
			Help:      "Field-level validation failures.",
		},
		[]string{"field"},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		tierAttempts,
		tierDuration,
		persisted,
		validationRejections,
		rateLimited,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered collectors.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordTierAttempt records one writer tier attempt.
// outcome is one of "ok", "error", "timeout" or "skipped".
func RecordTierAttempt(tier, backend, outcome string, d time.Duration) {
	tierAttempts.WithLabelValues(tier, backend, outcome).Inc()
	if outcome != "skipped" {
		tierDuration.WithLabelValues(tier, backend).Observe(d.Seconds())
	}
}

// RecordPersisted records the final tier for a submission.
func RecordPersisted(tier string) {
	if tier == "" {
		tier = "none"
	}
	persisted.WithLabelValues(tier).Inc()
}

// RecordValidationError counts a rejected field.
func RecordValidationError(field string) {
	validationRejections.WithLabelValues(field).Inc()
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited() {
	rateLimited.Inc()
}

// RecordHTTPRequest records a completed HTTP request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
