package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SearchesTotal counts searches by outcome: valid, invalid or error.
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelbox_searches_total",
			Help: "Total number of searches by outcome",
		},
		[]string{"outcome"},
	)
	// QueryDiagnosticsTotal counts query diagnostics by compiler stage.
	QueryDiagnosticsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelbox_query_diagnostics_total",
			Help: "Total number of query diagnostics by compiler stage",
		},
		[]string{"stage"},
	)
	// CompileDuration is the time spent compiling search queries.
	CompileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reelbox_query_compile_duration_seconds",
			Help:    "Search query compile latency in seconds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		},
	)
	// RequestTotal counts HTTP requests by method, path and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelbox_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelbox_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	// ViewingLogsDroppedTotal counts viewing logs the ingest engine discarded,
	// by reason: unknown_source or no_media.
	ViewingLogsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelbox_viewing_logs_dropped_total",
			Help: "Total number of viewing logs dropped by the ingest engine",
		},
		[]string{"reason"},
	)
	ProcessorErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelbox_processor_errors_total",
			Help: "Total number of viewing log processor failures",
		},
		[]string{"processor"},
	)
	// ViewingLogsStoredTotal counts viewing logs flushed to storage by the ingest engine.
	ViewingLogsStoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelbox_viewing_logs_stored_total",
			Help: "Total number of viewing logs stored by the ingest engine",
		},
	)
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware records request counts and latencies. The route pattern is used
// as the path label to keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}

		RequestTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		RequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
