// Package metrics exposes the Prometheus collectors of the casa server.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "casa_"

	ResultSuccess = "success"
	ResultError   = "error"

	ModeCurrent    = "current"
	ModeHistorical = "historical"

	TriggerExplicit = "explicit"
	TriggerLazy     = "lazy"
	TriggerImport   = "import"
)

var (
	registerOnce sync.Once

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	analyticsTotal   *prometheus.CounterVec
	analyticsLatency *prometheus.HistogramVec
	unknownFrequency prometheus.Counter

	snapshotsCreated *prometheus.CounterVec

	eventsPublished *prometheus.CounterVec

	cacheLookups *prometheus.CounterVec

	rateLimited        prometheus.Counter
	suspiciousRequests prometheus.Counter
)

// Init registers the collectors with the default registry. It is safe to
// call more than once.
func Init() {
	registerOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)

		analyticsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "analytics_computations_total",
				Help: "Total analytics computations by mode and result",
			},
			[]string{"mode", "result"},
		)
		analyticsLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "analytics_computation_seconds",
				Help:    "Analytics computation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		)
		unknownFrequency = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "analytics_unknown_frequency_total",
				Help: "Records aggregated with an unrecognized billing frequency",
			},
		)

		snapshotsCreated = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "historical_snapshots_created_total",
				Help: "Historical snapshots created by trigger",
			},
			[]string{"trigger"},
		)

		eventsPublished = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "change_events_total",
				Help: "Change events published by type and result",
			},
			[]string{"type", "result"},
		)

		cacheLookups = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "analytics_cache_lookups_total",
				Help: "Analytics cache lookups by outcome",
			},
			[]string{"outcome"},
		)

		rateLimited = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
		)
		suspiciousRequests = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_suspicious_requests_total",
				Help: "Requests matching a known attack pattern",
			},
		)

		prometheus.MustRegister(
			httpRequests,
			httpLatency,
			analyticsTotal,
			analyticsLatency,
			unknownFrequency,
			snapshotsCreated,
			eventsPublished,
			cacheLookups,
			rateLimited,
			suspiciousRequests,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTP records one served request. route is the router pattern, not
// the raw path.
func ObserveHTTP(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
	}
}

// ObserveAnalytics records one engine computation.
func ObserveAnalytics(mode, result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if analyticsTotal != nil {
		analyticsTotal.WithLabelValues(mode, result).Inc()
	}
	if analyticsLatency != nil && result == ResultSuccess {
		analyticsLatency.WithLabelValues(mode).Observe(duration.Seconds())
	}
}

func IncUnknownFrequency() {
	if unknownFrequency != nil {
		unknownFrequency.Inc()
	}
}

// AddSnapshots counts snapshots created by trigger.
func AddSnapshots(trigger string, n int) {
	if n <= 0 {
		return
	}
	if snapshotsCreated != nil {
		snapshotsCreated.WithLabelValues(trigger).Add(float64(n))
	}
}

func IncEvent(eventType, result string) {
	if eventsPublished != nil {
		eventsPublished.WithLabelValues(eventType, result).Inc()
	}
}

// IncCacheLookup records a cache hit or miss.
func IncCacheLookup(hit bool) {
	if cacheLookups == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	cacheLookups.WithLabelValues(outcome).Inc()
}

func IncRateLimited() {
	if rateLimited != nil {
		rateLimited.Inc()
	}
}

func IncSuspicious() {
	if suspiciousRequests != nil {
		suspiciousRequests.Inc()
	}
}
