// Package metrics holds the Prometheus collectors for the task mirror.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// resyncTotal counts resyncs by result (ok, skipped, error) and trigger (auto, force, import)
	resyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "todomirror_resync_total",
		Help: "Total mirror resyncs by result and trigger",
	}, []string{"result", "trigger"})

	// resyncDuration tracks fetch+replace latency
	resyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "todomirror_resync_duration_seconds",
		Help:    "Mirror resync duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	})

	// mirrorRecords is the row count written by the last successful resync or left after a clear
	mirrorRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "todomirror_mirror_records",
		Help: "Number of task records in the local mirror after the last resync or clear",
	})

	// upstreamRequests counts remote API calls by endpoint and status code
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "todomirror_upstream_requests_total",
		Help: "Remote API requests by endpoint and HTTP status code",
	}, []string{"endpoint", "code"})

	// httpRequests counts served requests by route pattern and status code
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "todomirror_http_requests_total",
		Help: "HTTP requests served by route and status code",
	}, []string{"route", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "todomirror_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// ObserveResync records one resync attempt.
func ObserveResync(result, trigger string, d time.Duration) {
	resyncTotal.WithLabelValues(result, trigger).Inc()
	resyncDuration.Observe(d.Seconds())
}

// SetMirrorRecords records the mirror size.
func SetMirrorRecords(n int) {
	mirrorRecords.Set(float64(n))
}

// ObserveUpstream records one remote API call. code is 0 for transport failures.
func ObserveUpstream(endpoint string, code int) {
	upstreamRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
}

// ObserveHTTP records one served request.
func ObserveHTTP(route string, code int, d time.Duration) {
	httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
