// Package metrics registers the Prometheus collectors for the aggregator
// and the HTTP surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Metrics holds all Prometheus collectors for tubedigest.
var Metrics = struct {
	RefreshDuration  prometheus.Histogram
	UpstreamRequests *prometheus.CounterVec
	ChannelOutcomes  *prometheus.CounterVec
	CacheHits        *prometheus.CounterVec
	CacheMisses      *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}{}

// Init registers all Prometheus metrics. Call once at startup.
func Init() {
	Metrics.RefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tubedigest_refresh_duration_seconds",
			Help:    "Duration of full aggregation pipeline runs.",
			Buckets: prometheus.DefBuckets,
		},
	)

	Metrics.UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubedigest_upstream_requests_total",
			Help: "Upstream search requests, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	Metrics.ChannelOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubedigest_channel_outcomes_total",
			Help: "Terminal states of per-channel aggregation.",
		},
		[]string{"state"},
	)

	Metrics.CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubedigest_cache_hits_total",
			Help: "Record-store cache hits, by cache.",
		},
		[]string{"cache"},
	)

	Metrics.CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubedigest_cache_misses_total",
			Help: "Record-store cache misses, by cache.",
		},
		[]string{"cache"},
	)

	Metrics.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tubedigest_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint, method and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	Metrics.RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tubedigest_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	prometheus.MustRegister(
		Metrics.RefreshDuration,
		Metrics.UpstreamRequests,
		Metrics.ChannelOutcomes,
		Metrics.CacheHits,
		Metrics.CacheMisses,
		Metrics.RequestDuration,
		Metrics.RequestsInFlight,
	)
}

// ObserveRefresh records the duration of one pipeline run.
func ObserveRefresh(d time.Duration) {
	if Metrics.RefreshDuration != nil {
		Metrics.RefreshDuration.Observe(d.Seconds())
	}
}

// IncUpstream counts one upstream search request by kind ("channel" or
// "video") and outcome ("ok" or "error").
func IncUpstream(kind, outcome string) {
	if Metrics.UpstreamRequests != nil {
		Metrics.UpstreamRequests.WithLabelValues(kind, outcome).Inc()
	}
}

// IncOutcome counts one per-channel terminal state.
func IncOutcome(state string) {
	if Metrics.ChannelOutcomes != nil {
		Metrics.ChannelOutcomes.WithLabelValues(state).Inc()
	}
}

// IncCache counts a hit or miss for the named cache.
func IncCache(cache string, hit bool) {
	if hit {
		if Metrics.CacheHits != nil {
			Metrics.CacheHits.WithLabelValues(cache).Inc()
		}
		return
	}
	if Metrics.CacheMisses != nil {
		Metrics.CacheMisses.WithLabelValues(cache).Inc()
	}
}

// Middleware records request duration and in-flight count for Prometheus.
func Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		// Don't instrument the /metrics endpoint itself, and stay inert
		// when the collectors were never registered.
		if c.Path() == "/metrics" || Metrics.RequestsInFlight == nil {
			return c.Next()
		}

		// Copy path and method into owned strings before c.Next(): Fiber
		// returns slices backed by the fasthttp buffer which can be reused
		// by handlers.
		path := string([]byte(c.Path()))
		method := string([]byte(c.Method()))
		endpoint := sanitizeEndpoint(path)

		Metrics.RequestsInFlight.Inc()
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())

		Metrics.RequestDuration.WithLabelValues(endpoint, method, status).Observe(duration)
		Metrics.RequestsInFlight.Dec()

		return err
	}
}

// sanitizeEndpoint normalizes parameterized paths to avoid cardinality
// explosion.
func sanitizeEndpoint(path string) string {
	switch {
	case len(path) > 16 && path[:16] == "/api/categories/":
		return "/api/categories/:name"
	case len(path) > 14 && path[:14] == "/api/channels/":
		return "/api/channels/:name"
	case len(path) > 20 && path[:20] == "/api/cache/channels/":
		return "/api/cache/channels/:name"
	case len(path) > 16 && path[:16] == "/api/admin/keys/":
		return "/api/admin/keys/:key"
	default:
		return path
	}
}

// Handler serves the Prometheus /metrics endpoint via Fiber.
func Handler() fiber.Handler {
	httpHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c fiber.Ctx) error {
		httpHandler(c.RequestCtx())
		return nil
	}
}
