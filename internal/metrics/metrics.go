// Package metrics owns the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Metrics groups every collector. A nil *Metrics is valid and records nothing,
// which keeps services usable in tests without a registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        prometheus.Gauge

	salesTotal       prometheus.Counter
	salesRevenue     prometheus.Counter
	saleRejections   *prometheus.CounterVec
	lowStockEnqueued prometheus.Counter
	jobsProcessed    *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests processed",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests currently being served",
		}),
		salesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sales_recorded_total",
			Help: "Sales committed",
		}),
		salesRevenue: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sales_revenue_total",
			Help: "Sum of total_price over committed sales",
		}),
		saleRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sales_rejected_total",
			Help: "Sales that did not commit, by reason",
		}, []string{"reason"}),
		lowStockEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "low_stock_alerts_enqueued_total",
			Help: "Low-stock alert jobs pushed to the queue",
		}),
		jobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_jobs_total",
			Help: "Background jobs by queue and result",
		}, []string{"queue", "result"}), // result: ok|retry|dead
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpInflight,
		m.salesTotal,
		m.salesRevenue,
		m.saleRejections,
		m.lowStockEnqueued,
		m.jobsProcessed,
	)
	return m
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware instruments every request. The path label is the gin route
// template (/api/products/:id), never the raw URL, to keep cardinality bounded.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		m.httpInflight.Inc()
		start := time.Now()

		c.Next()

		m.httpInflight.Dec()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func (m *Metrics) SaleRecorded(total decimal.Decimal) {
	if m == nil {
		return
	}
	m.salesTotal.Inc()
	f, _ := total.Float64()
	m.salesRevenue.Add(f)
}

func (m *Metrics) SaleRejected(reason string) {
	if m == nil {
		return
	}
	m.saleRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) LowStockEnqueued() {
	if m == nil {
		return
	}
	m.lowStockEnqueued.Inc()
}

func (m *Metrics) JobProcessed(queue, result string) {
	if m == nil {
		return
	}
	m.jobsProcessed.WithLabelValues(queue, result).Inc()
}
