// Package metrics holds the Prometheus metrics of the journal service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for TreeOps.
const (
	OutcomeChanged  = "changed"
	OutcomeNoop     = "noop"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
	OutcomeStorage  = "storage_failure"
)

// Collector owns a private registry, so several collectors (one per test)
// never collide on registration.
//
// All methods are safe on a nil *Collector, which records nothing.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	TreeOps         *prometheus.CounterVec
	Autosaves       *prometheus.CounterVec
	StorageFailures *prometheus.CounterVec
	OpenSessions    prometheus.Gauge
}

// NewCollector creates and registers every metric under namespace.
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
		TreeOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "journal_tree_ops_total",
				Help:      "Journal tree operations by kind and outcome",
			},
			[]string{"op", "outcome"},
		),
		Autosaves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "editor_saves_total",
				Help:      "Page content saves by trigger and status",
			},
			[]string{"trigger", "status"},
		),
		StorageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "journal_storage_failures_total",
				Help:      "Journal writes that could not be persisted",
			},
			[]string{"operation"},
		),
		OpenSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "editor_sessions_open",
				Help:      "Number of open editor sessions",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.TreeOps,
		c.Autosaves,
		c.StorageFailures,
		c.OpenSessions,
	)
	return c
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) TreeOp(op, outcome string) {
	if c == nil {
		return
	}
	c.TreeOps.WithLabelValues(op, outcome).Inc()
}

// Autosave counts one editor save; err nil is "ok".
func (c *Collector) Autosave(trigger string, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.Autosaves.WithLabelValues(trigger, status).Inc()
}

func (c *Collector) StorageFailure(operation string) {
	if c == nil {
		return
	}
	c.StorageFailures.WithLabelValues(operation).Inc()
}

func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.OpenSessions.Inc()
}

func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.OpenSessions.Dec()
}
