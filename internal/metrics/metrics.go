package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus collectors for edit operations and engine runs.
type Metrics struct {
	registry         *prometheus.Registry
	operationsTotal  *prometheus.CounterVec
	rejectedTotal    *prometheus.CounterVec
	engineRunsTotal  *prometheus.CounterVec
	engineDuration   *prometheus.HistogramVec
	exportsTotal     *prometheus.CounterVec
	operationsActive prometheus.Gauge
	requestsTotal    *prometheus.CounterVec
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	operationsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goclip_operations_total",
		Help: "Edit operations completed, by kind and outcome",
	}, []string{"kind", "outcome"})
	rejectedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goclip_operations_rejected_total",
		Help: "Edit operations rejected before reaching the engine, by reason",
	}, []string{"reason"})
	engineRunsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goclip_engine_runs_total",
		Help: "Engine invocations, by outcome",
	}, []string{"outcome"})
	engineDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "goclip_engine_duration_seconds",
		Help:    "Wall time of engine invocations",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"outcome"})
	exportsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goclip_exports_total",
		Help: "Exports finished, by outcome",
	}, []string{"outcome"})
	operationsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "goclip_operations_active",
		Help: "Edit operations and exports currently in flight",
	})

	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goclip_http_requests_total",
		Help: "HTTP API requests, by method and status class",
	}, []string{"method", "status"})

	registry.MustRegister(
		operationsTotal,
		rejectedTotal,
		engineRunsTotal,
		engineDuration,
		exportsTotal,
		operationsActive,
		requestsTotal,
	)

	return &Metrics{
		registry:         registry,
		operationsTotal:  operationsTotal,
		rejectedTotal:    rejectedTotal,
		engineRunsTotal:  engineRunsTotal,
		engineDuration:   engineDuration,
		exportsTotal:     exportsTotal,
		operationsActive: operationsActive,
		requestsTotal:    requestsTotal,
	}
}

// ObserveOperation counts a finished edit operation.
func (m *Metrics) ObserveOperation(kind, outcome string) {
	m.operationsTotal.WithLabelValues(kind, outcome).Inc()
}

// IncRejected counts a request turned away before the engine ran.
func (m *Metrics) IncRejected(reason string) {
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

// ObserveEngine records one engine invocation.
func (m *Metrics) ObserveEngine(outcome string, took time.Duration) {
	m.engineRunsTotal.WithLabelValues(outcome).Inc()
	m.engineDuration.WithLabelValues(outcome).Observe(took.Seconds())
}

// ObserveExport counts a finished export.
func (m *Metrics) ObserveExport(outcome string) {
	m.exportsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) OperationStarted() {
	m.operationsActive.Inc()
}

func (m *Metrics) OperationFinished() {
	m.operationsActive.Dec()
}

// IncRequest counts one HTTP request by method and status class ("2xx").
func (m *Metrics) IncRequest(method string, status int) {
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(status/100)+"xx").Inc()
}

// Registry exposes the underlying registry for tests and custom handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
