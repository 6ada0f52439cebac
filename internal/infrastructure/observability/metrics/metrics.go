package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreschagin/session-monitor/internal/domain/entity"
)

const namespace = "session_monitor"

// SessionSource is the read side of the session tracker.
type SessionSource interface {
	CurrentMetrics() entity.CurrentMetrics
	HistoryLen() int
}

// Metrics bundles prometheus collectors used by the service.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	RateLimitDropped   prometheus.Counter
	WindowsCacheHits   prometheus.Counter
	WindowsCacheMisses prometheus.Counter
	DeployChecks       *prometheus.CounterVec
	ReportErrors       *prometheus.CounterVec
}

// New registers request collectors and session gauges backed by source.
func New(registry *prometheus.Registry, source SessionSource) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		RateLimitDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_dropped_total",
			Help:      "Total number of requests dropped by rate limiter.",
		}),
		WindowsCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_cache_hits_total",
			Help:      "Deployment window recommendations served from cache.",
		}),
		WindowsCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_cache_misses_total",
			Help:      "Deployment window recommendations computed on request.",
		}),
		DeployChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deploy_checks_total",
			Help:      "Deploy safety checks by result.",
		}, []string{"result"}),
		ReportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_errors_total",
			Help:      "Failures of background jobs by job name.",
		}, []string{"job"}),
	}
	m.registry = registry

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationSec,
		m.RateLimitDropped,
		m.WindowsCacheHits,
		m.WindowsCacheMisses,
		m.DeployChecks,
		m.ReportErrors,
	)

	if source != nil {
		registry.MustRegister(sessionCollectors(source)...)
	}

	return m
}

func sessionCollectors(source SessionSource) []prometheus.Collector {
	return []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Currently open sessions.",
		}, func() float64 {
			return float64(source.CurrentMetrics().ActiveSessions)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peak_sessions",
			Help:      "Highest number of concurrently open sessions since start.",
		}, func() float64 {
			return float64(source.CurrentMetrics().PeakSessions)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions opened since start.",
		}, func() float64 {
			return float64(source.CurrentMetrics().TotalSessionsStarted)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Sessions closed since start.",
		}, func() float64 {
			return float64(source.CurrentMetrics().TotalSessionsEnded)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "average_session_duration_seconds",
			Help:      "Mean duration of closed sessions, 0 until one closes.",
		}, func() float64 {
			avg := source.CurrentMetrics().AverageSessionDuration
			if avg == nil {
				return 0
			}
			return avg.Seconds()
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_snapshots",
			Help:      "Snapshots currently held in the history buffer.",
		}, func() float64 {
			return float64(source.HistoryLen())
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCacheLookup implements usecase.CacheObserver.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	if hit {
		m.WindowsCacheHits.Inc()
		return
	}
	m.WindowsCacheMisses.Inc()
}

// ObserveDeployCheck counts a deploy safety decision.
func (m *Metrics) ObserveDeployCheck(canDeploy bool) {
	result := "unsafe"
	if canDeploy {
		result = "safe"
	}
	m.DeployChecks.WithLabelValues(result).Inc()
}

// ObserveJobError counts a failed background job run.
func (m *Metrics) ObserveJobError(job string) {
	m.ReportErrors.WithLabelValues(job).Inc()
}

// ObserveRateLimited counts a request rejected by the rate limiter.
func (m *Metrics) ObserveRateLimited() {
	m.RateLimitDropped.Inc()
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedAt := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.statusCode)
		route := normalizeRoute(r.URL.Path)
		m.RequestsTotal.WithLabelValues(route, r.Method, status).Inc()
		m.RequestDurationSec.WithLabelValues(route, r.Method, status).Observe(time.Since(startedAt).Seconds())
	})
}

// knownRoutes keeps label cardinality bounded.
var knownRoutes = map[string]struct{}{
	"/ws":                                 {},
	"/metrics":                            {},
	"/healthz":                            {},
	"/readyz":                             {},
	"/api/v1/circuits/current":            {},
	"/api/v1/circuits/history":            {},
	"/api/v1/circuits/history/export":     {},
	"/api/v1/circuits/active-circuits":    {},
	"/api/v1/circuits/has-active":         {},
	"/api/v1/circuits/deployment-windows": {},
	"/api/v1/circuits/can-deploy":         {},
	"/api/v1/deploy-gate/summary":         {},
	"/api/v1/deploy-gate/run":             {},
	"/api/v1/deploy-gate/audit":           {},
}

func normalizeRoute(path string) string {
	if _, ok := knownRoutes[path]; ok {
		return path
	}
	return "other"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Hijack passes websocket upgrades through wrapped ResponseWriter.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// Flush keeps streaming behavior for handlers that require it.
func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
