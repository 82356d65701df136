package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application.
// Each collector owns its registry so tests can create as many as they need.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Bus metrics
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Import metrics
	NodesCreated   *prometheus.CounterVec
	NodesReplaced  prometheus.Counter
	Imports        *prometheus.CounterVec
	ImportDuration prometheus.Histogram

	// Store metrics
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec
	BreakerState    *prometheus.GaugeVec
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of commands and queries handled",
			},
			[]string{"kind", "name", "status"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Command and query duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind", "name"},
		),
		NodesCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nodes_created_total",
				Help:      "Total number of nodes created",
			},
			[]string{"source"},
		),
		NodesReplaced: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nodes_replaced_total",
				Help:      "Total number of nodes deleted because an imported node reused their name",
			},
		),
		Imports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "imports_total",
				Help:      "Total number of import runs",
			},
			[]string{"status"},
		),
		ImportDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "import_duration_seconds",
				Help:      "Import run duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of document store operations",
			},
			[]string{"operation", "status"},
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Document store operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Operations,
		c.OperationDuration,
		c.NodesCreated,
		c.NodesReplaced,
		c.Imports,
		c.ImportDuration,
		c.StoreOperations,
		c.StoreDuration,
		c.BreakerState,
	)

	return c
}

// Registry returns the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served request
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordOperation records one command or query
func (c *Collector) RecordOperation(kind, name, status string, duration time.Duration) {
	c.Operations.WithLabelValues(kind, name, status).Inc()
	c.OperationDuration.WithLabelValues(kind, name).Observe(duration.Seconds())
}

// RecordNodeCreated counts a created node
func (c *Collector) RecordNodeCreated(source string) {
	c.NodesCreated.WithLabelValues(source).Inc()
}

// RecordNodeReplaced counts nodes removed by the import replace step
func (c *Collector) RecordNodeReplaced(count int) {
	c.NodesReplaced.Add(float64(count))
}

// RecordImport records a finished import run
func (c *Collector) RecordImport(status string, duration time.Duration) {
	c.Imports.WithLabelValues(status).Inc()
	c.ImportDuration.Observe(duration.Seconds())
}

// RecordStoreOperation records one document store call
func (c *Collector) RecordStoreOperation(operation, status string, duration time.Duration) {
	c.StoreOperations.WithLabelValues(operation, status).Inc()
	c.StoreDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetBreakerState publishes the state of a named circuit breaker
func (c *Collector) SetBreakerState(name string, state float64) {
	c.BreakerState.WithLabelValues(name).Set(state)
}
