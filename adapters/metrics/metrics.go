// Package metrics provides Prometheus metrics collection.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for the scaffold.
type Collector struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Schema binding metrics
	SchemaReloads      prometheus.Counter
	SchemaReloadErrors prometheus.Counter
	BoundEntities      prometheus.Gauge

	// Storage metrics
	StoreFallback prometheus.Gauge
}

// New creates a collector registered on the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector on a custom registry. Useful for
// testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "schemagate",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "schemagate",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "status"},
		),
		SchemaReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "schemagate",
				Name:      "schema_reloads_total",
				Help:      "Total number of successful schema rebinds",
			},
		),
		SchemaReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "schemagate",
				Name:      "schema_reload_errors_total",
				Help:      "Total number of rejected schema updates",
			},
		),
		BoundEntities: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "schemagate",
				Name:      "bound_entities",
				Help:      "Number of entities in the active route table",
			},
		),
		StoreFallback: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "schemagate",
				Name:      "store_fallback_active",
				Help:      "1 when requests are served by the in-memory fallback store",
			},
		),
	}
}

// Middleware instruments HTTP requests. A nil collector is a no-op.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		status := strconv.Itoa(rec.status)
		c.RequestsTotal.WithLabelValues(r.Method, status).Inc()
		c.RequestDuration.WithLabelValues(r.Method, status).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
