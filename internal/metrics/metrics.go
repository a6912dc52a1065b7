// Package metrics owns the Prometheus collectors of the escrow API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "anhthoxay"

// Metrics bundles the collectors registered on its own registry. A nil
// *Metrics records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	transitions     *prometheus.CounterVec
	released        *prometheus.CounterVec
	operationErrors *prometheus.CounterVec
	conflictRetries prometheus.Counter
	httpInFlight    prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "escrow",
				Name:      "transitions_total",
				Help:      "Escrow status transitions that were committed.",
			},
			[]string{"from", "to"},
		),
		released: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "escrow",
				Name:      "released_amount_total",
				Help:      "Money released to contractors, in minor currency units.",
			},
			[]string{"currency"},
		),
		operationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "escrow",
				Name:      "operation_errors_total",
				Help:      "Escrow operations that failed, by error kind.",
			},
			[]string{"op", "kind"},
		),
		conflictRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "escrow",
				Name:      "conflict_retries_total",
				Help:      "Escrow mutations retried after losing a concurrent write.",
			},
		),
		httpInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "inflight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
			},
			[]string{"method", "path"},
		),
	}
	m.Registry.MustRegister(
		m.transitions,
		m.released,
		m.operationErrors,
		m.conflictRetries,
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) Released(currency string, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.released.WithLabelValues(currency).Add(float64(amount))
}

func (m *Metrics) OperationError(op, kind string) {
	if m == nil {
		return
	}
	m.operationErrors.WithLabelValues(op, kind).Inc()
}

func (m *Metrics) ConflictRetry() {
	if m == nil {
		return
	}
	m.conflictRetries.Inc()
}

// HTTPStarted marks a request in flight and returns the func that records it
// once the response status is known. path should be the route template.
func (m *Metrics) HTTPStarted() func(method, path string, status int) {
	if m == nil {
		return func(string, string, int) {}
	}
	start := time.Now()
	m.httpInFlight.Inc()
	return func(method, path string, status int) {
		m.httpInFlight.Dec()
		m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
