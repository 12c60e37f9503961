// Package metrics holds the Prometheus collectors for the ledger and the
// HTTP layer. Labels are kept to bounded sets: operation names, outcomes,
// HTTP methods, chi route patterns and status codes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every collector the service exports.
type Metrics struct {
	ledgerOps      *prometheus.CounterVec
	ledgerLatency  *prometheus.HistogramVec
	ledgerRecords  prometheus.Gauge
	httpReqs       *prometheus.CounterVec
	httpLat        *prometheus.HistogramVec
	httpInflight   prometheus.Gauge
	classifyBreeds *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ledgerOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dogify",
				Name:      "ledger_operations_total",
				Help:      "Ledger operations by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
		ledgerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "dogify",
				Name:      "ledger_operation_duration_seconds",
				Help:      "Ledger operation duration, queueing and simulated latency included.",
				Buckets:   []float64{.005, .05, .25, .5, 1, 1.5, 2.5, 5, 10},
			},
			[]string{"op"},
		),
		ledgerRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "dogify",
				Name:      "ledger_records",
				Help:      "Records in the durable set after the last write.",
			},
		),
		classifyBreeds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dogify",
				Name:      "identified_breeds_total",
				Help:      "Accepted uploads by breed label.",
			},
			[]string{"breed"},
		),
		httpReqs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		httpLat: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		httpInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_inflight",
				Help: "Current number of in-flight HTTP requests.",
			},
		),
	}

	reg.MustRegister(
		m.ledgerOps,
		m.ledgerLatency,
		m.ledgerRecords,
		m.classifyBreeds,
		m.httpReqs,
		m.httpLat,
		m.httpInflight,
	)

	return m
}

// Observe records one ledger operation.
func (m *Metrics) Observe(op, outcome string, d time.Duration) {
	m.ledgerOps.WithLabelValues(op, outcome).Inc()
	m.ledgerLatency.WithLabelValues(op).Observe(d.Seconds())
}

// RecordsStored sets the durable set size gauge.
func (m *Metrics) RecordsStored(n int) {
	m.ledgerRecords.Set(float64(n))
}

// BreedIdentified counts an accepted upload for breed.
func (m *Metrics) BreedIdentified(breed string) {
	m.classifyBreeds.WithLabelValues(breed).Inc()
}

// RequestStarted bumps the in-flight gauge and returns the func that ends the request.
func (m *Metrics) RequestStarted() func(method, path, status string, d time.Duration) {
	m.httpInflight.Inc()

	return func(method, path, status string, d time.Duration) {
		m.httpInflight.Dec()
		m.httpReqs.WithLabelValues(method, path, status).Inc()
		m.httpLat.WithLabelValues(method, path).Observe(d.Seconds())
	}
}
