package observer

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsEnabled = true // Flag to control metric collection

	httpLabels = []string{"method", "route", "status"}

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buyer_lead_http_requests_total",
			Help: "Total number of HTTP requests, labeled by route pattern and status code.",
		},
		httpLabels,
	)
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "buyer_lead_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"method", "route"},
	)

	// Labels for database operations
	dbOperationLabels = []string{"operation", "entity", "status"}

	DatabaseOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "buyer_lead_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		dbOperationLabels,
	)

	LeadMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buyer_lead_leads_mutations_total",
			Help: "Total number of successful lead mutations, labeled by action.",
		},
		[]string{"action"},
	)
	ValidationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buyer_lead_validation_failures_total",
			Help: "Total number of field validation failures, labeled by input source and field.",
		},
		[]string{"source", "field"},
	)

	ImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buyer_lead_import_rows_total",
			Help: "Total number of CSV rows seen by the importer, labeled by outcome.",
		},
		[]string{"outcome"},
	)
	ImportBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buyer_lead_import_batches_total",
			Help: "Total number of import batches, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	RateLimitRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buyer_lead_rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter.",
		},
		[]string{"route"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buyer_lead_events_published_total",
			Help: "Total number of lead events handed to JetStream, labeled by event type and status.",
		},
		[]string{"event_type", "status"},
	)
)

// --- Validation Worker Pool Metrics ---
var (
	validationTasksSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "buyer_lead_validation_tasks_submitted_total",
		Help: "Total number of row validation tasks submitted to the worker pool.",
	})
	validationProcessingDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "buyer_lead_validation_processing_duration_seconds",
		Help:    "Histogram of row validation durations inside the worker pool.",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12), // 50µs to ~100ms
	})
	validationWorkersRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "buyer_lead_validation_workers_running",
		Help: "Number of busy workers in the validation pool.",
	})
)

// InitMetrics toggles metric collection. Metrics are registered by promauto at package load.
func InitMetrics(enabled bool) {
	metricsEnabled = enabled
}

// ObserveHTTPRequest counts a finished request and records its latency.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	route = sanitizeRoute(route)
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveDbOperationDuration records the duration for a database operation.
func ObserveDbOperationDuration(operation, entity string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseOperationDurationSeconds.WithLabelValues(operation, entity, status).Observe(duration.Seconds())
}

// IncLeadMutation counts a successful create, update, delete or import.
func IncLeadMutation(action string, n int) {
	if !metricsEnabled || n <= 0 {
		return
	}
	LeadMutationsTotal.WithLabelValues(action).Add(float64(n))
}

// IncValidationFailure counts one failing field.
func IncValidationFailure(source, field string) {
	if !metricsEnabled {
		return
	}
	ValidationFailuresTotal.WithLabelValues(source, field).Inc()
}

// AddImportRows counts rows by outcome (valid, invalid, persisted).
func AddImportRows(outcome string, n int) {
	if !metricsEnabled || n <= 0 {
		return
	}
	ImportRowsTotal.WithLabelValues(outcome).Add(float64(n))
}

// IncImportBatch counts a finished import by outcome (imported, rejected, aborted).
func IncImportBatch(outcome string) {
	if !metricsEnabled {
		return
	}
	ImportBatchesTotal.WithLabelValues(outcome).Inc()
}

// IncRateLimitRejection counts a request refused by the limiter.
func IncRateLimitRejection(route string) {
	if !metricsEnabled {
		return
	}
	RateLimitRejectionsTotal.WithLabelValues(sanitizeRoute(route)).Inc()
}

// IncEventPublished counts a publish attempt. err nil means success.
func IncEventPublished(eventType string, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = SanitizeErrorType(err.Error())
	}
	EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}

// IncValidationTasksSubmitted increments the counter for submitted validation tasks.
func IncValidationTasksSubmitted() {
	if metricsEnabled {
		validationTasksSubmittedTotal.Inc()
	}
}

// ObserveValidationDuration records the time spent validating one row.
func ObserveValidationDuration(duration time.Duration) {
	if metricsEnabled {
		validationProcessingDurationSeconds.Observe(duration.Seconds())
	}
}

// SetValidationWorkersRunning sets the number of busy validation workers.
func SetValidationWorkersRunning(count int) {
	if metricsEnabled {
		validationWorkersRunning.Set(float64(count))
	}
}

// sanitizeRoute keeps the route label bounded; unmatched paths share one bucket.
func sanitizeRoute(route string) string {
	if route == "" {
		return "unmatched"
	}
	return route
}

// SanitizeErrorType maps specific errors or provides a default category.
// Keep this simple to avoid high cardinality.
func SanitizeErrorType(errStr string) string {
	if errStr == "" || errStr == "none" {
		return "none"
	}

	switch {
	case strings.Contains(errStr, "database"), strings.Contains(errStr, "SQL"), strings.Contains(errStr, "duplicate key"), strings.Contains(errStr, "constraint"):
		return "database"
	case strings.Contains(errStr, "validation failed"), strings.Contains(errStr, "bad request"), strings.Contains(errStr, "invalid"):
		return "validation"
	case strings.Contains(errStr, "not found"), strings.Contains(errStr, "no rows"):
		return "not_found"
	case strings.Contains(errStr, "nats"), strings.Contains(errStr, "jetstream"), strings.Contains(errStr, "no responders"):
		return "nats"
	case strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return "timeout"
	case strings.Contains(errStr, "marshal"), strings.Contains(errStr, "json"):
		return "marshal"
	case strings.Contains(errStr, "connection"):
		return "connection"
	case strings.Contains(errStr, "panic"):
		return "panic"
	default:
		return "unknown"
	}
}
