// Package metrics exposes Prometheus counters for event dispatch, file
// ingestion and the health HTTP server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion outcomes, one per terminal state of the file-share handler.
const (
	OutcomeSaved         = "saved"
	OutcomeNoFile        = "no_file"
	OutcomeRejected      = "rejected"
	OutcomeFetchFailed   = "fetch_failed"
	OutcomeStorageFailed = "storage_failed"
)

var (
	eventsDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kl_slack_events_dispatched_total",
			Help: "Inbound events by kind and whether a handler matched",
		},
		[]string{"kind", "matched"},
	)

	handlerErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kl_slack_handler_errors_total",
			Help: "Handler errors and recovered panics by stage",
		},
		[]string{"stage"},
	)

	fileIngestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kl_slack_file_ingestions_total",
			Help: "File-share handling by terminal outcome",
		},
		[]string{"outcome"},
	)

	savedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kl_slack_saved_bytes_total",
			Help: "Bytes persisted by the file store",
		},
	)

	downloadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kl_slack_download_duration_seconds",
			Help:    "Authenticated file download duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kl_slack_http_requests_total",
			Help: "Total number of HTTP requests to the health server",
		},
		[]string{"method", "path", "status"},
	)
)

func ObserveDispatch(kind string, matched bool) {
	eventsDispatchedTotal.WithLabelValues(kind, strconv.FormatBool(matched)).Inc()
}

func ObserveHandlerError(stage string) {
	handlerErrorsTotal.WithLabelValues(stage).Inc()
}

func ObserveIngestion(outcome string) {
	fileIngestionsTotal.WithLabelValues(outcome).Inc()
}

func AddSavedBytes(n int64) {
	if n > 0 {
		savedBytesTotal.Add(float64(n))
	}
}

func ObserveDownload(d time.Duration) {
	downloadDuration.Observe(d.Seconds())
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware counts requests by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
			if pattern := routeCtx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
	})
}
