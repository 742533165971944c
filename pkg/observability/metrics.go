// Package observability exposes Prometheus metrics and the health/metrics
// HTTP server.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "napfox_turns_total",
			Help: "Total number of processed conversation turns",
		},
		[]string{"status", "mode"},
	)

	turnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "napfox_turn_duration_seconds",
			Help:    "Turn processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	capabilityCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "napfox_capability_calls_total",
			Help: "Total number of generation capability calls",
		},
		[]string{"instance", "purpose", "status"},
	)

	capabilityCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "napfox_capability_call_duration_seconds",
			Help:    "Generation capability call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"instance", "purpose"},
	)

	validationIssuesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "napfox_validation_issues_total",
			Help: "Total number of schedule validation issues found",
		},
	)

	repairsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "napfox_repairs_total",
			Help: "Total number of repair attempts",
		},
		[]string{"outcome"},
	)

	rateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "napfox_rate_limited_total",
			Help: "Total number of rate-limited requests",
		},
	)

	initOnce sync.Once
)

// InitMetrics registers all metrics with the default registry.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			turnsTotal,
			turnDuration,
			capabilityCallsTotal,
			capabilityCallDuration,
			validationIssuesTotal,
			repairsTotal,
			rateLimitedTotal,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordTurn records one processed turn.
func RecordTurn(status, mode string, duration time.Duration) {
	turnsTotal.WithLabelValues(status, mode).Inc()
	turnDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordCapabilityCall records one generation capability call.
func RecordCapabilityCall(instance, purpose, status string, duration time.Duration) {
	capabilityCallsTotal.WithLabelValues(instance, purpose, status).Inc()
	capabilityCallDuration.WithLabelValues(instance, purpose).Observe(duration.Seconds())
}

// RecordValidationIssues adds to the validation issue counter.
func RecordValidationIssues(count int) {
	validationIssuesTotal.Add(float64(count))
}

// RecordRepair records a repair attempt outcome ("accepted" or "rejected").
func RecordRepair(outcome string) {
	repairsTotal.WithLabelValues(outcome).Inc()
}

// RecordRateLimited counts a rate-limited request.
func RecordRateLimited() {
	rateLimitedTotal.Inc()
}
