package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the server's Prometheus collectors on a private registry
type Metrics struct {
	Registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	classifications *prometheus.CounterVec
	classifyErrors  prometheus.Counter
	rateLimited     prometheus.Counter
}

// NewMetrics creates and registers the server collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiscope_http_requests_total",
				Help: "Count of HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentiscope_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		classifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentiscope_classifications_total",
				Help: "Count of successful classifications by sentiment",
			},
			[]string{"sentiment"},
		),
		classifyErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sentiscope_classification_errors_total",
				Help: "Count of failed classification calls",
			},
		),
		rateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sentiscope_rate_limited_total",
				Help: "Count of requests rejected by the per-client rate limit",
			},
		),
	}

	m.Registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.classifications,
		m.classifyErrors,
		m.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}
