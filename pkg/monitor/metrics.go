package monitor

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ssargent/bmlfuzz/pkg/campaign"
)

// Metrics holds the Prometheus metrics of a fuzzing process. It implements
// campaign.Observer.
type Metrics struct {
	registry *prometheus.Registry

	// Campaign metrics
	iterationsTotal *prometheus.CounterVec
	mutationsTotal  *prometheus.CounterVec
	loadDuration    *prometheus.HistogramVec

	// HTTP request metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the metrics on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		iterationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bmlfuzz_iterations_total",
				Help: "Total number of fuzzing iterations by outcome",
			},
			[]string{"campaign", "outcome"},
		),

		mutationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bmlfuzz_mutations_total",
				Help: "Total number of strategy applications",
			},
			[]string{"campaign", "strategy"},
		),

		loadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bmlfuzz_load_duration_seconds",
				Help:    "Time spent loading mutated documents",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"campaign"},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bmlfuzz_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bmlfuzz_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe implements campaign.Observer.
func (m *Metrics) Observe(c campaign.Info, r *campaign.IterationResult) {
	m.iterationsTotal.WithLabelValues(c.Name, r.Outcome.String()).Inc()
	for _, s := range r.Strategies {
		m.mutationsTotal.WithLabelValues(c.Name, s).Inc()
	}
	if r.Loaded {
		m.loadDuration.WithLabelValues(c.Name).Observe(r.LoadDuration.Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)
		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
