// Package metrics exposes authentication and session counters to Prometheus.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lborres/quill/core"
)

const namespace = "quill"

// Auth methods used as the "method" label.
const (
	MethodLocal     = "local"
	MethodFederated = "federated"
	MethodRegister  = "register"
)

type Metrics struct {
	registry *prometheus.Registry

	authAttempts  *prometheus.CounterVec
	sessionsSwept prometheus.Counter
	sweepErrors   prometheus.Counter
	requests      *prometheus.CounterVec
}

// New builds a private registry. cache may be nil.
func New(cache core.CacheWithStats) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		authAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Authentication attempts by method and outcome.",
		}, []string{"method", "outcome"}),
		sessionsSwept: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_swept_total",
			Help:      "Expired sessions removed by the sweeper.",
		}),
		sweepErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_sweep_errors_total",
			Help:      "Sweeper runs that failed.",
		}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by operation and status code class.",
		}, []string{"operation", "class"}),
	}

	if cache != nil {
		registerCache(factory, cache)
	}
	return m
}

func registerCache(factory promauto.Factory, cache core.CacheWithStats) {
	counter := func(name, help string, read func(core.CacheStats) int64) {
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session_cache",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(read(cache.Stats())) })
	}
	counter("hits_total", "Session cache hits.", func(s core.CacheStats) int64 { return s.Hits })
	counter("misses_total", "Session cache misses.", func(s core.CacheStats) int64 { return s.Misses })
	counter("evictions_total", "Session cache evictions.", func(s core.CacheStats) int64 { return s.Evictions })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session_cache",
		Name:      "entries",
		Help:      "Sessions currently cached.",
	}, func() float64 { return float64(cache.Stats().Size) })
}

// ObserveAuth records one attempt. Only credential rejections count as
// "rejected"; anything else failing is "error".
func (m *Metrics) ObserveAuth(method string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, core.ErrAccountExists),
		errors.Is(err, core.ErrLinkingDisabled),
		errors.Is(err, core.ErrFederationExchangeFailed):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	m.authAttempts.WithLabelValues(method, outcome).Inc()
}

// ObserveSweep records one sweeper run.
func (m *Metrics) ObserveSweep(removed int, err error) {
	if err != nil {
		m.sweepErrors.Inc()
		return
	}
	m.sessionsSwept.Add(float64(removed))
}

// ObserveRequest records a finished request under its operation id.
func (m *Metrics) ObserveRequest(operation string, status int) {
	m.requests.WithLabelValues(operation, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
