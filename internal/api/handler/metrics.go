package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clinchain_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clinchain_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	auditEntriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinchain_audit_entries_total",
		Help: "Total audit chain entries created.",
	})

	ledgerSubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clinchain_ledger_submissions_total",
		Help: "Total ledger backend submissions by status.",
	}, []string{"status"})

	freezesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinchain_document_freezes_total",
		Help: "Total documents frozen.",
	})

	readinessChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clinchain_readiness_checks_total",
		Help: "Total readiness probes by result.",
	}, []string{"result"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		requestsTotal.WithLabelValues(method, path, status).Inc()
		requestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordAuditEntry records one audit chain entry creation.
func RecordAuditEntry() {
	auditEntriesTotal.Inc()
}

// RecordLedgerSubmission records a backend submission outcome.
func RecordLedgerSubmission(status string) {
	ledgerSubmissionsTotal.WithLabelValues(status).Inc()
}

// RecordFreeze records one document freeze.
func RecordFreeze() {
	freezesTotal.Inc()
}

// RecordReadinessCheck records a readiness probe result.
func RecordReadinessCheck(success bool) {
	if success {
		readinessChecksTotal.WithLabelValues("success").Inc()
	} else {
		readinessChecksTotal.WithLabelValues("failure").Inc()
	}
}
