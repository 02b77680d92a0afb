// Package metrics records backend API calls made by the client in Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the API client reports to.
type Recorder interface {
	RecordRequest(operation, outcome string, duration time.Duration)
}

// Outcomes reported for each API call.
const (
	OutcomeSuccess    = "success"
	OutcomeHTTPError  = "http_error"
	OutcomeNetwork    = "network_error"
	OutcomeValidation = "validation_error"
	OutcomeAuth       = "auth_error"
)

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rentacar_api_requests_total",
			Help: "Backend API calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rentacar_api_request_duration_seconds",
			Help:    "Backend API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(c.requests, c.latency)
	return c
}

// RecordRequest counts one call and observes its latency.
func (c *Collector) RecordRequest(operation, outcome string, duration time.Duration) {
	c.requests.WithLabelValues(operation, outcome).Inc()
	c.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// Handler serves the metrics in gatherer on /metrics.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Nop discards everything.
type Nop struct{}

// RecordRequest implements Recorder.
func (Nop) RecordRequest(string, string, time.Duration) {}
