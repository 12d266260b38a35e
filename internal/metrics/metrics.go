// Package metrics provides Prometheus instrumentation for the paywall service.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bchpaywall",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bchpaywall",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ProviderQueriesTotal counts balance queries by provider and outcome.
	ProviderQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bchpaywall",
			Name:      "provider_queries_total",
			Help:      "Total chain provider queries by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	// ProviderQueryDuration observes chain provider latency.
	ProviderQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bchpaywall",
			Name:      "provider_query_duration_seconds",
			Help:      "Chain provider query duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 6, 10},
		},
		[]string{"provider"},
	)

	// OracleExhaustedTotal counts lookups where every provider failed.
	OracleExhaustedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bchpaywall",
		Name:      "oracle_exhausted_total",
		Help:      "Total balance lookups where all providers failed.",
	})

	// SnapshotCacheHitsTotal counts balance snapshot cache hits and misses.
	SnapshotCacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bchpaywall",
			Name:      "snapshot_cache_total",
			Help:      "Balance snapshot cache lookups by result.",
		},
		[]string{"result"},
	)

	// SessionsCreatedTotal counts created payment sessions.
	SessionsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bchpaywall",
		Name:      "sessions_created_total",
		Help:      "Total payment sessions created.",
	})

	// SessionsConfirmedTotal counts sessions marked paid, by confirmation mode.
	SessionsConfirmedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bchpaywall",
			Name:      "sessions_confirmed_total",
			Help:      "Total payment sessions confirmed as paid, by mode.",
		},
		[]string{"mode"},
	)

	// StatusChecksTotal counts status poll requests by result.
	StatusChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bchpaywall",
			Name:      "status_checks_total",
			Help:      "Total session status checks by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ProviderQueriesTotal,
		ProviderQueryDuration,
		OracleExhaustedTotal,
		SnapshotCacheHitsTotal,
		SessionsCreatedTotal,
		SessionsConfirmedTotal,
		StatusChecksTotal,
	)
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for the /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
