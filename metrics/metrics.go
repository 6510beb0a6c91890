// Package metrics defines the Prometheus collectors exposed on /metrics.
// Collectors register against an explicit registry so multiple server
// instances can coexist in one process.
package metrics

import (
	"database/sql"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks request counts and latencies per route
type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers HTTP metrics
func NewHTTPMetrics(reg prometheus.Registerer, service string) *HTTPMetrics {
	m := &HTTPMetrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: service + "_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		}, []string{"method", "path", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    service + "_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
	reg.MustRegister(m.RequestsTotal, m.RequestDuration)
	return m
}

// ObserveRequest records one completed request
func (m *HTTPMetrics) ObserveRequest(method, path string, status int, seconds float64) {
	m.RequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// CaptureMetrics tracks the ingestion pipeline
type CaptureMetrics struct {
	CapturesTotal *prometheus.CounterVec
}

// NewCaptureMetrics creates and registers capture metrics
func NewCaptureMetrics(reg prometheus.Registerer, service string) *CaptureMetrics {
	m := &CaptureMetrics{
		CapturesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: service + "_captures_total",
			Help: "Total number of content captures by type and analysis path.",
		}, []string{"content_type", "ai_used"}),
	}
	reg.MustRegister(m.CapturesTotal)
	return m
}

// ObserveCapture records one completed capture
func (m *CaptureMetrics) ObserveCapture(contentType string, aiUsed bool) {
	m.CapturesTotal.WithLabelValues(contentType, strconv.FormatBool(aiUsed)).Inc()
}

// DatabaseMetrics mirrors sql.DBStats as gauges
type DatabaseMetrics struct {
	OpenConnections prometheus.Gauge
	InUse           prometheus.Gauge
	Idle            prometheus.Gauge
	WaitCount       prometheus.Gauge
}

// NewDatabaseMetrics creates and registers database pool metrics
func NewDatabaseMetrics(reg prometheus.Registerer, service string) *DatabaseMetrics {
	m := &DatabaseMetrics{
		OpenConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: service + "_db_open_connections",
			Help: "Open connections in the database pool.",
		}),
		InUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: service + "_db_in_use_connections",
			Help: "Database connections currently in use.",
		}),
		Idle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: service + "_db_idle_connections",
			Help: "Idle connections in the database pool.",
		}),
		WaitCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: service + "_db_wait_count_total",
			Help: "Total number of connections waited for.",
		}),
	}
	reg.MustRegister(m.OpenConnections, m.InUse, m.Idle, m.WaitCount)
	return m
}

// UpdateDBStats refreshes the gauges from the connection pool
func (m *DatabaseMetrics) UpdateDBStats(db *sql.DB) {
	stats := db.Stats()
	m.OpenConnections.Set(float64(stats.OpenConnections))
	m.InUse.Set(float64(stats.InUse))
	m.Idle.Set(float64(stats.Idle))
	m.WaitCount.Set(float64(stats.WaitCount))
}
