// Package metrics provides Prometheus metrics collection for the token service.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Version is reported through the info gauge.
const Version = "0.1.0"

var (
	// Using atomic.Pointer for lock-free initialization checks on hot path metrics.
	requestsTotal        atomic.Pointer[prometheus.CounterVec]
	requestDuration      atomic.Pointer[prometheus.HistogramVec]
	authFailuresTotal    atomic.Pointer[prometheus.CounterVec]
	tokenOperationsTotal atomic.Pointer[prometheus.CounterVec]
	activityEventsTotal  atomic.Pointer[prometheus.CounterVec]
)

// Init initializes all Prometheus metrics and registers them with the provided registry.
// This should be called once at application startup.
func Init(reg prometheus.Registerer) error {
	requestsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apptokens",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)
	if err := reg.Register(requestsTotalVec); err != nil {
		return fmt.Errorf("failed to register requestsTotal: %w", err)
	}

	requestDurationVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "apptokens",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	if err := reg.Register(requestDurationVec); err != nil {
		return fmt.Errorf("failed to register requestDuration: %w", err)
	}

	authFailuresTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apptokens",
			Subsystem: "auth",
			Name:      "failures_total",
			Help:      "Total number of authentication failures",
		},
		[]string{"reason"},
	)
	if err := reg.Register(authFailuresTotalVec); err != nil {
		return fmt.Errorf("failed to register authFailuresTotal: %w", err)
	}

	// Token lifecycle operations by outcome (ok, unavailable, not_found, error)
	tokenOperationsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apptokens",
			Subsystem: "tokens",
			Name:      "operations_total",
			Help:      "Total number of app token lifecycle operations",
		},
		[]string{"operation", "outcome"},
	)
	if err := reg.Register(tokenOperationsTotalVec); err != nil {
		return fmt.Errorf("failed to register tokenOperationsTotal: %w", err)
	}

	activityEventsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apptokens",
			Subsystem: "activity",
			Name:      "events_total",
			Help:      "Total number of activity events published, by outcome",
		},
		[]string{"subject", "outcome"},
	)
	if err := reg.Register(activityEventsTotalVec); err != nil {
		return fmt.Errorf("failed to register activityEventsTotal: %w", err)
	}

	infoGaugeVec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "apptokens",
			Name:      "info",
			Help:      "Service version and build information",
		},
		[]string{"version"},
	)
	if err := reg.Register(infoGaugeVec); err != nil {
		return fmt.Errorf("failed to register infoGauge: %w", err)
	}
	infoGaugeVec.WithLabelValues(Version).Set(1)

	requestsTotal.Store(requestsTotalVec)
	requestDuration.Store(requestDurationVec)
	authFailuresTotal.Store(authFailuresTotalVec)
	tokenOperationsTotal.Store(tokenOperationsTotalVec)
	activityEventsTotal.Store(activityEventsTotalVec)

	return nil
}

// RecordRequest increments the requests counter for the given method, path, and status code.
// The path should be normalized (e.g., "/settings/personal/authtokens/:id").
func RecordRequest(method, path, statusCode string) {
	if counter := requestsTotal.Load(); counter != nil {
		counter.WithLabelValues(method, path, statusCode).Inc()
	}
}

// RecordRequestDuration records the latency for a request in seconds.
func RecordRequestDuration(method, path, statusCode string, durationSeconds float64) {
	if histogram := requestDuration.Load(); histogram != nil {
		histogram.WithLabelValues(method, path, statusCode).Observe(durationSeconds)
	}
}

// RecordAuthFailure increments the auth failures counter for the given reason.
// Common reasons: "invalid_credentials", "invalid_token", "missing_session"
func RecordAuthFailure(reason string) {
	if counter := authFailuresTotal.Load(); counter != nil {
		counter.WithLabelValues(reason).Inc()
	}
}

// RecordTokenOperation counts one app token operation and its outcome.
func RecordTokenOperation(operation, outcome string) {
	if counter := tokenOperationsTotal.Load(); counter != nil {
		counter.WithLabelValues(operation, outcome).Inc()
	}
}

// RecordActivityEvent counts one activity publication attempt.
func RecordActivityEvent(subject, outcome string) {
	if counter := activityEventsTotal.Load(); counter != nil {
		counter.WithLabelValues(subject, outcome).Inc()
	}
}

// Handler returns an HTTP handler for Prometheus metrics in text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns an HTTP handler serving metrics from reg.
func HandlerFor(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// GetMetricsText returns the Prometheus text-format output from a registry.
// This is useful for testing and debugging.
func GetMetricsText(reg prometheus.Gatherer) (string, error) {
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	HandlerFor(reg).ServeHTTP(w, req)

	body, err := io.ReadAll(w.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read metrics output: %w", err)
	}

	return string(body), nil
}
