package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "reviews"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "external_requests_total", Help: "Outbound classifier requests."},
		[]string{"service", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "external_request_duration_seconds",
			Help:    "Outbound classifier request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	PipelineRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "pipeline_rows_total", Help: "Rows seen by the cleaner, by outcome."},
		[]string{"app", "outcome"}, // outcome: input|missing_content|missing_score|duplicate|output
	)
	PipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "pipeline_runs_total", Help: "Pipeline runs by result."},
		[]string{"result"},
	)
	ClassifierFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "classifier_fallbacks_total", Help: "Text classifications replaced by neutral."},
		[]string{"strategy", "reason"}, // reason: error|panic|invalid_label
	)
	ClassifierLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "classifier_duration_seconds",
			Help:    "Text classification duration seconds.",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"strategy"},
	)
)

// Serve exposes the default registry on addr. An empty addr disables it.
func Serve(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return srv
}

var collectors = []prometheus.Collector{
	HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents,
	PipelineRows, PipelineRuns, ClassifierFallbacks, ClassifierLatency,
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors...)
	return reg
}

// RegisterDefault registers the collectors with the process-wide registry
// used by Serve. Collectors already registered are skipped.
func RegisterDefault() {
	for _, c := range collectors {
		if err := prometheus.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				log.Warn().Err(err).Msg("metrics register")
			}
		}
	}
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveRows(app, outcome string, n int) {
	if n > 0 {
		PipelineRows.WithLabelValues(app, outcome).Add(float64(n))
	}
}

func ObserveRun(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	PipelineRuns.WithLabelValues(result).Inc()
}

func ObserveClassify(strategy string, dur time.Duration) {
	ClassifierLatency.WithLabelValues(strategy).Observe(dur.Seconds())
}

func ObserveFallback(strategy, reason string) {
	ClassifierFallbacks.WithLabelValues(strategy, reason).Inc()
}
