// Package metrics registers the Prometheus collectors recipeatlas exports on
// /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Rule engine
	RuleCompilations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipeatlas_rule_compilations_total",
			Help: "Rule compilations by mode and result",
		},
		[]string{"mode", "result"}, // result: ok, invalid
	)

	RuleCompileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recipeatlas_rule_compile_duration_seconds",
			Help:    "Rule compilation latency in seconds",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
	)

	RuleValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipeatlas_rule_validations_total",
			Help: "Rule validations by outcome",
		},
		[]string{"valid"},
	)

	// Qualification
	Qualifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipeatlas_qualifications_total",
			Help: "Qualification results by status",
		},
		[]string{"status"},
	)

	// Storage
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recipeatlas_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipeatlas_db_query_errors_total",
			Help: "Total number of database query errors",
		},
		[]string{"operation"},
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipeatlas_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recipeatlas_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	// gRPC
	GRPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipeatlas_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "code"},
	)
)

// RecordCompile records one compilation attempt.
func RecordCompile(mode string, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "invalid"
	}
	RuleCompilations.WithLabelValues(mode, result).Inc()
	RuleCompileDuration.Observe(duration.Seconds())
}

// RecordValidation records one validation.
func RecordValidation(valid bool) {
	RuleValidations.WithLabelValues(strconv.FormatBool(valid)).Inc()
}

// RecordQualification records a computed status.
func RecordQualification(status string) {
	Qualifications.WithLabelValues(status).Inc()
}

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, route string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordGRPCRequest records a unary gRPC call.
func RecordGRPCRequest(method, code string) {
	GRPCRequestsTotal.WithLabelValues(method, code).Inc()
}
