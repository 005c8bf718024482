package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the intake API.
type MetricsService struct {
	registry             *prometheus.Registry
	handler              http.Handler
	requestDuration      *prometheus.HistogramVec
	requestTotal         *prometheus.CounterVec
	submissionOutcomes   *prometheus.CounterVec
	notificationFailures *prometheus.CounterVec
}

// Submission outcome labels.
const (
	OutcomeCompleted        = "completed"
	OutcomeValidationFailed = "validation_failed"
	OutcomeDuplicate        = "duplicate"
	OutcomeStorageError     = "storage_error"
)

// NewMetricsService registers the service's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	submissionOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_submissions_total",
		Help: "Enrollment submissions by terminal outcome",
	}, []string{"outcome"})

	notificationFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_notification_failures_total",
		Help: "Notification dispatch failures by recipient",
	}, []string{"recipient"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, submissionOutcomes, notificationFailures, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:             registry,
		handler:              handler,
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		submissionOutcomes:   submissionOutcomes,
		notificationFailures: notificationFailures,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordSubmissionOutcome counts a terminal pipeline outcome.
func (m *MetricsService) RecordSubmissionOutcome(outcome string) {
	if m == nil {
		return
	}
	m.submissionOutcomes.WithLabelValues(outcome).Inc()
}

// RecordNotificationFailure counts a swallowed notification failure.
func (m *MetricsService) RecordNotificationFailure(recipient string) {
	if m == nil {
		return
	}
	m.notificationFailures.WithLabelValues(recipient).Inc()
}
