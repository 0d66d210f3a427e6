// Package metrics exposes Prometheus instrumentation for probing, the result
// cache, and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the evprobe collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	probesTotal     *prometheus.CounterVec
	probeDuration   prometheus.Histogram
	cacheLookups    *prometheus.CounterVec
	cacheEntries    prometheus.Gauge
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	probesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evprobe_ffprobe_runs_total",
		Help: "ffprobe invocations by outcome",
	}, []string{"outcome"})
	probeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "evprobe_ffprobe_duration_seconds",
		Help:    "Wall time of ffprobe invocations",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})
	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evprobe_cache_lookups_total",
		Help: "Probe cache lookups by result",
	}, []string{"result"})
	cacheEntries := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "evprobe_cache_entries",
		Help: "Entries in the probe cache at last scrape",
	})
	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evprobe_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"route", "code"})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evprobe_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	registry.MustRegister(
		probesTotal,
		probeDuration,
		cacheLookups,
		cacheEntries,
		requestsTotal,
		requestDuration,
	)

	return &Metrics{
		registry:        registry,
		probesTotal:     probesTotal,
		probeDuration:   probeDuration,
		cacheLookups:    cacheLookups,
		cacheEntries:    cacheEntries,
		requestsTotal:   requestsTotal,
		requestDuration: requestDuration,
	}
}

// ObserveProbe records one ffprobe run.
func (m *Metrics) ObserveProbe(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.probesTotal.WithLabelValues(outcome).Inc()
	m.probeDuration.Observe(elapsed.Seconds())
}

// ObserveCache records one cache lookup result.
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// SetCacheEntries sets the cache size gauge.
func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.cacheEntries.Set(float64(n))
}

// ObserveRequest records one HTTP response.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	inner := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		inner.ServeHTTP(w, r)
	})
}
