package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitwatch_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbitwatch_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	screeningDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orbitwatch_screening_duration_seconds",
			Help:    "Duration of a full conjunction screening pass in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	screeningsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbitwatch_screenings_total",
			Help: "Total number of completed conjunction screening passes.",
		},
	)

	propagationErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbitwatch_propagation_errors_total",
			Help: "Total per-instant debris propagation failures (each skips one sample).",
		},
	)

	sgp4InitFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbitwatch_sgp4_init_failures_total",
			Help: "Total debris elements that failed SGP4 initialization and were skipped for a pass.",
		},
	)

	feedFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitwatch_feed_fetches_total",
			Help: "External feed fetch attempts by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	activeThreats = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orbitwatch_active_threats",
			Help: "Threats in the current snapshot by kind and severity.",
		},
		[]string{"kind", "severity"},
	)

	catalogElements = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orbitwatch_catalog_elements",
			Help: "Number of debris elements in the current catalog dataset.",
		},
	)

	catalogAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orbitwatch_catalog_age_seconds",
			Help: "Age of the current catalog dataset in seconds.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		screeningDurationSeconds,
		screeningsTotal,
		propagationErrorsTotal,
		sgp4InitFailuresTotal,
		feedFetchesTotal,
		activeThreats,
		catalogElements,
		catalogAgeSeconds,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordScreening records the duration and failure counts of one screening pass.
func RecordScreening(d time.Duration, propagationErrors, initFailures int) {
	screeningDurationSeconds.Observe(d.Seconds())
	screeningsTotal.Inc()
	propagationErrorsTotal.Add(float64(propagationErrors))
	sgp4InitFailuresTotal.Add(float64(initFailures))
}

// RecordFeedFetch records one external feed fetch attempt.
// Source is "catalog" or "geomag"; outcome is "success" or "error".
func RecordFeedFetch(source, outcome string) {
	feedFetchesTotal.WithLabelValues(source, outcome).Inc()
}

// SetActiveThreats sets the active-threat gauge for one kind/severity pair.
func SetActiveThreats(kind, severity string, n int) {
	activeThreats.WithLabelValues(kind, severity).Set(float64(n))
}

// ResetActiveThreats clears all active-threat gauge values before a snapshot update.
func ResetActiveThreats() {
	activeThreats.Reset()
}

// SetCatalogElements sets the catalog element count gauge.
func SetCatalogElements(n int) {
	catalogElements.Set(float64(n))
}

// SetCatalogAge sets the catalog dataset age gauge in seconds.
func SetCatalogAge(seconds float64) {
	catalogAgeSeconds.Set(seconds)
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

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.URL.Path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(r.URL.Path, r.Method).Observe(duration)
	})
}
