// Package metrics provides Prometheus metrics for the prescription builder.
//
// HTTP metrics:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// Catalog and builder metrics:
//   - catalog_reload_total: Counter with source and result labels
//   - catalog_rows: Gauge of rows in the active catalog
//   - prescription_export_total: Counter with result label
//   - selection_stale_responses_total: Counter with lookup label
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	CatalogReloadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_reload_total",
			Help: "Catalog reload attempts by trigger and result",
		},
		[]string{"trigger", "result"},
	)

	CatalogRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_rows",
			Help: "Rows in the active medicine catalog",
		},
	)

	PrescriptionExportTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prescription_export_total",
			Help: "Prescription export attempts by result",
		},
		[]string{"result"},
	)

	StaleResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "selection_stale_responses_total",
			Help: "Lookup responses discarded because a newer selection superseded them",
		},
		[]string{"lookup"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(CatalogReloadTotal)
	prometheus.MustRegister(CatalogRows)
	prometheus.MustRegister(PrescriptionExportTotal)
	prometheus.MustRegister(StaleResponsesTotal)
}
