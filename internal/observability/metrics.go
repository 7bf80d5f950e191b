package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce          sync.Once
	gradingRequestsTotal  *prometheus.CounterVec
	gradingLatencySeconds *prometheus.HistogramVec
	gradingErrorsTotal    *prometheus.CounterVec
	gradingOperations     *prometheus.CounterVec
	autoZeroSubmissions   *prometheus.CounterVec
	gradebookCacheLookups *prometheus.CounterVec
	gradeEventsPublished  *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the grading service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		gradingRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_requests_total",
			Help: "Total number of grading API requests served.",
		}, []string{"method", "route", "status"})

		gradingLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grading_latency_seconds",
			Help:    "Latency distribution for grading API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		gradingErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_errors_total",
			Help: "Total number of error responses returned by grading endpoints.",
		}, []string{"method", "route", "status"})

		gradingOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_operations_total",
			Help: "Grading workflow operations by outcome.",
		}, []string{"operation", "outcome"})

		autoZeroSubmissions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_auto_zero_submissions_total",
			Help: "Submissions processed by auto-zero grading.",
		}, []string{"outcome"})

		gradebookCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_gradebook_cache_lookups_total",
			Help: "Gradebook cache lookups by result.",
		}, []string{"result"})

		gradeEventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_events_published_total",
			Help: "Grade lifecycle events published to brokers.",
		}, []string{"type"})

		prometheus.MustRegister(
			gradingRequestsTotal,
			gradingLatencySeconds,
			gradingErrorsTotal,
			gradingOperations,
			autoZeroSubmissions,
			gradebookCacheLookups,
			gradeEventsPublished,
		)
	})
}

// GradingRequests exposes the counter for grading requests.
func GradingRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingRequestsTotal
}

// GradingLatency exposes the latency histogram for grading requests.
func GradingLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return gradingLatencySeconds
}

// GradingErrors exposes the counter for grading error responses.
func GradingErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingErrorsTotal
}

// GradingOperations counts workflow operations by name and outcome.
func GradingOperations() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingOperations
}

// AutoZeroSubmissions counts per-submission outcomes of auto-zero grading.
func AutoZeroSubmissions() *prometheus.CounterVec {
	RegisterMetrics()
	return autoZeroSubmissions
}

// GradebookCacheLookups counts gradebook cache hits and misses.
func GradebookCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return gradebookCacheLookups
}

// GradeEventsPublished counts grade events handed to brokers.
func GradeEventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return gradeEventsPublished
}

// MetricsHandler serves the default Prometheus registry, grading collectors included.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}
