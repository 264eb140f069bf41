package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics manages the Prometheus metrics for the key ledger.
type Metrics struct {
	KeysIssued       *prometheus.CounterVec
	KeyTransitions   *prometheus.CounterVec
	RequestsRecorded *prometheus.CounterVec
	RateLimitReject  *prometheus.CounterVec
	ScopeChecks      *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPLatency      *prometheus.HistogramVec
}

// NewMetrics creates and registers the Prometheus metrics on a dedicated
// registry so tests can instantiate it more than once.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		KeysIssued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_keys_issued_total",
				Help: "Total number of API keys issued.",
			},
			[]string{"service"},
		),
		KeyTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_key_transitions_total",
				Help: "Total number of key lifecycle transitions.",
			},
			[]string{"service", "transition"},
		),
		RequestsRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_requests_recorded_total",
				Help: "Total number of usage recordings admitted.",
			},
			[]string{"service"},
		),
		RateLimitReject: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_rate_limit_rejections_total",
				Help: "Total number of usage recordings rejected by the daily limit.",
			},
			[]string{"service"},
		),
		ScopeChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_scope_checks_total",
				Help: "Total number of scope validations.",
			},
			[]string{"service", "result"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keygate_http_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// NewDefaultMetrics registers on the global Prometheus registry.
func NewDefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPLatency.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordKeyIssued records a successful key issuance.
func (m *Metrics) RecordKeyIssued(service string) {
	m.KeysIssued.WithLabelValues(service).Inc()
}

// RecordTransition records a revoke or reactivate transition.
func (m *Metrics) RecordTransition(service, transition string) {
	m.KeyTransitions.WithLabelValues(service, transition).Inc()
}

// RecordUsage records the outcome of a usage recording attempt.
func (m *Metrics) RecordUsage(service string, admitted bool) {
	if admitted {
		m.RequestsRecorded.WithLabelValues(service).Inc()
	} else {
		m.RateLimitReject.WithLabelValues(service).Inc()
	}
}

// RecordScopeCheck records the outcome of a scope validation.
func (m *Metrics) RecordScopeCheck(service string, granted bool) {
	result := "granted"
	if !granted {
		result = "denied"
	}
	m.ScopeChecks.WithLabelValues(service, result).Inc()
}
