// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the usergate gateway.
package observability

import "github.com/prometheus/client_golang/prometheus"

// HTTPBuckets covers gate-only rejections (sub-millisecond) through proxied
// upstream calls (seconds).
var HTTPBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usergate_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "usergate_request_duration_seconds",
			Help:    "Request duration",
			Buckets: HTTPBuckets,
		},
		[]string{"method"},
	)

	// GateDecisionsTotal counts rate-limit gate outcomes
	// (allowed, blocked, rate_limited).
	GateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usergate_gate_decisions_total",
			Help: "Rate limit gate decisions",
		},
		[]string{"outcome"},
	)

	// BlocksStartedTotal counts transitions into the blocked state.
	BlocksStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "usergate_blocks_started_total",
			Help: "Client blocks started",
		},
	)

	// AuthFailuresTotal counts credential rejections by scope and reason.
	AuthFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usergate_auth_failures_total",
			Help: "Authentication failures",
		},
		[]string{"scope", "reason"},
	)

	// TenantContextMissingTotal counts requests that reached the tenant
	// resolver without a tenant in context (a routing defect).
	TenantContextMissingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "usergate_tenant_context_missing_total",
			Help: "Requests rejected for missing tenant context",
		},
	)

	// UpstreamErrorsTotal counts failed proxy round trips.
	UpstreamErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "usergate_upstream_errors_total",
			Help: "Upstream proxy errors",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		GateDecisionsTotal,
		BlocksStartedTotal,
		AuthFailuresTotal,
		TenantContextMissingTotal,
		UpstreamErrorsTotal,
	)
}
