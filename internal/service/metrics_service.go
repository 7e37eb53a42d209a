package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP surface
// and the ledger's own write paths.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	enrollmentsCreated prometheus.Counter
	purchasesMerged    prometheus.Counter
	sweepUpdated       prometheus.Counter
	sweepRuns          prometheus.Counter
	extensionsRecorded prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
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

	enrollmentsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_enrollments_created_total",
		Help: "New ledger rows inserted",
	})

	purchasesMerged := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_purchases_merged_total",
		Help: "Purchases folded into an existing ledger row",
	})

	sweepUpdated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_sweep_expired_total",
		Help: "Rows flagged expired by the sweep",
	})

	sweepRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_sweep_runs_total",
		Help: "Expiry sweep executions",
	})

	extensionsRecorded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_extensions_total",
		Help: "Manual validity extensions recorded",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, enrollmentsCreated, purchasesMerged, sweepUpdated, sweepRuns, extensionsRecorded, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		enrollmentsCreated: enrollmentsCreated,
		purchasesMerged:    purchasesMerged,
		sweepUpdated:       sweepUpdated,
		sweepRuns:          sweepRuns,
		extensionsRecorded: extensionsRecorded,
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

// RecordEnrollmentCreated counts a new ledger row.
func (m *MetricsService) RecordEnrollmentCreated() {
	if m == nil {
		return
	}
	m.enrollmentsCreated.Inc()
}

// RecordPurchaseMerged counts a merge into an existing row.
func (m *MetricsService) RecordPurchaseMerged() {
	if m == nil {
		return
	}
	m.purchasesMerged.Inc()
}

// RecordSweep counts one sweep run and the rows it flagged.
func (m *MetricsService) RecordSweep(updated int) {
	if m == nil {
		return
	}
	m.sweepRuns.Inc()
	m.sweepUpdated.Add(float64(updated))
}

// RecordExtension counts a recorded validity extension.
func (m *MetricsService) RecordExtension() {
	if m == nil {
		return
	}
	m.extensionsRecorded.Inc()
}
