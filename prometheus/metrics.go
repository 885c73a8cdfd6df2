package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Chat turn counter
	ChatTurnCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Total number of chat turns processed",
		},
	)

	// Fallback activation counter by failure category
	FallbackCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_fallback_total",
			Help: "Total number of chat turns degraded to a fallback reply",
		},
		[]string{"category"}, // timeout, connection, dns, oversize, network
	)

	// Normalizer outcome counter by payload shape
	NormalizerShapeCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_normalizer_shapes_total",
			Help: "Total number of workflow responses by extracted outcome",
		},
		[]string{"outcome"}, // text, component, sentinel, empty
	)

	// Document lifecycle transition counter
	DocumentTransitionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_transitions_total",
			Help: "Total number of document status transitions",
		},
		[]string{"transition"}, // ingested, resubmitted, duplicate, handed_off, processed, failed, retried
	)

	// Webhook callback counter
	WebhookCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "processing_webhooks_total",
			Help: "Total number of processor webhook callbacks by reported status",
		},
		[]string{"status"},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	AccessErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_access_errors_total",
			Help: "Total number of authentication and authorization errors",
		},
		[]string{"type"},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation can be "query", "insert", "update", "delete"
	)

	// Workflow call duration; buckets stretched because the engine can
	// legitimately take minutes
	WorkflowCallDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_workflow_call_duration_seconds",
			Help:    "Duration of outbound AI workflow calls in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
		},
	)
)

// Gauge metrics
var (
	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_service_info",
			Help: "Information about the support chat service",
		},
		[]string{"version"},
	)

	// Documents currently in PROCESSING
	ProcessingDocumentsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "documents_processing",
			Help: "Number of documents currently in PROCESSING status",
		},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(ChatTurnCounter)
	prometheus.MustRegister(FallbackCounter)
	prometheus.MustRegister(NormalizerShapeCounter)
	prometheus.MustRegister(DocumentTransitionCounter)
	prometheus.MustRegister(WebhookCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AccessErrorCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)
	prometheus.MustRegister(WorkflowCallDuration)

	// Register gauges
	prometheus.MustRegister(InfoGauge)
	prometheus.MustRegister(ProcessingDocumentsGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// TrackWorkflowCall measures the duration of one workflow call
func TrackWorkflowCall() func() {
	startTime := time.Now()
	return func() {
		WorkflowCallDuration.Observe(time.Since(startTime).Seconds())
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler
			err := next(c)

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// RecordChatTurn records one processed chat turn
func RecordChatTurn() {
	ChatTurnCounter.Inc()
}

// RecordFallback records a degraded chat turn by failure category
func RecordFallback(category string) {
	FallbackCounter.With(prometheus.Labels{"category": category}).Inc()
}

// RecordNormalizerOutcome records what the normalizer extracted
func RecordNormalizerOutcome(outcome string) {
	NormalizerShapeCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RecordDocumentTransition records a document lifecycle transition
func RecordDocumentTransition(transition string) {
	DocumentTransitionCounter.With(prometheus.Labels{"transition": transition}).Inc()
}

// RecordWebhook records a processor webhook callback
func RecordWebhook(status string) {
	WebhookCounter.With(prometheus.Labels{"status": status}).Inc()
}

// RecordAccessError records an authentication or authorization error by type
func RecordAccessError(errorType string) {
	AccessErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// IncProcessingDocuments records a document entering PROCESSING
func IncProcessingDocuments() {
	ProcessingDocumentsGauge.Inc()
}

// DecProcessingDocuments records a document leaving PROCESSING
func DecProcessingDocuments() {
	ProcessingDocumentsGauge.Dec()
}
