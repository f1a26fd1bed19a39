package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer
// and the generation engine.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	generationTotal     *prometheus.CounterVec
	generationDuration  prometheus.Histogram
	generationPasses    prometheus.Histogram
	generationConflicts prometheus.Histogram
}

// NewMetricsService registers the service collectors on a fresh registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	generationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_generations_total",
		Help: "Total timetable generation runs by outcome",
	}, []string{"outcome"})

	generationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_generation_duration_seconds",
		Help:    "Duration of timetable generation runs",
		Buckets: prometheus.DefBuckets,
	})

	generationPasses := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_generation_passes",
		Help:    "Allocation passes used per generation run",
		Buckets: []float64{1, 2, 3, 5, 8, 10},
	})

	generationConflicts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_generation_conflicts",
		Help:    "Unplaced tasks remaining per generation run",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, generationTotal,
		generationDuration, generationPasses, generationConflicts, goroutines)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		generationTotal:     generationTotal,
		generationDuration:  generationDuration,
		generationPasses:    generationPasses,
		generationConflicts: generationConflicts,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveGeneration records the outcome of one engine run.
func (m *MetricsService) ObserveGeneration(passes, conflicts int, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "clean"
	if conflicts > 0 {
		outcome = "conflicted"
	}
	m.generationTotal.WithLabelValues(outcome).Inc()
	m.generationDuration.Observe(duration.Seconds())
	m.generationPasses.Observe(float64(passes))
	m.generationConflicts.Observe(float64(conflicts))
}
