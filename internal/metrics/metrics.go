// Package metrics exposes Prometheus instrumentation for upstream calls and
// polling. All methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upstream outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeMalformed = "malformed"
	OutcomeNoConfig  = "not_configured"
)

// Metrics holds the collectors registered on a private registry
type Metrics struct {
	registry            *prometheus.Registry
	upstreamRequests    *prometheus.CounterVec
	commentaryFallbacks prometheus.Counter
	pollDuration        *prometheus.HistogramVec
	lastPollSuccess     *prometheus.GaugeVec
	cacheLookups        *prometheus.CounterVec
}

// New creates and registers all collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_upstream_requests_total",
			Help: "Requests made to upstream services, by source and outcome.",
		}, []string{"source", "outcome"}),
		commentaryFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_commentary_fallbacks_total",
			Help: "Commentary requests answered with the fallback line.",
		}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_poll_duration_seconds",
			Help:    "Duration of one polling refresh, by job.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		lastPollSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dashboard_last_poll_success_timestamp_seconds",
			Help: "Unix time of the last refresh that completed without error, by job.",
		}, []string{"job"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_cache_lookups_total",
			Help: "Snapshot cache lookups, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.upstreamRequests,
		m.commentaryFallbacks,
		m.pollDuration,
		m.lastPollSuccess,
		m.cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveUpstream counts one upstream request
func (m *Metrics) ObserveUpstream(source, outcome string) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(source, outcome).Inc()
}

// CommentaryFallback counts one fallback comment
func (m *Metrics) CommentaryFallback() {
	if m == nil {
		return
	}
	m.commentaryFallbacks.Inc()
}

// ObservePoll records a refresh duration and, when ok, its completion time
func (m *Metrics) ObservePoll(job string, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.pollDuration.WithLabelValues(job).Observe(d.Seconds())
	if ok {
		m.lastPollSuccess.WithLabelValues(job).SetToCurrentTime()
	}
}

// ObserveCache counts a cache hit or miss
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
