// Package observability provides Prometheus metrics and structured-logging
// helpers for the gateway.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets suits histogram buckets to LLM inference latencies, from
// 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts north-bound HTTP requests by route and status
	// class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oaigw_requests_total",
			Help: "Total north-bound requests",
		},
		[]string{"route", "status"},
	)

	// RequestDuration records north-bound request duration by route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oaigw_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"route"},
	)

	// StreamingConnections tracks active SSE connections.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "oaigw_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// KeepAliveHeartbeatsTotal counts heartbeat frames emitted by the
	// keep-alive pump.
	KeepAliveHeartbeatsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "oaigw_keepalive_heartbeats_total",
			Help: "Keep-alive heartbeat frames emitted",
		},
	)

	// UpstreamRequestsTotal counts requests dispatched to a backend.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oaigw_upstream_requests_total",
			Help: "Upstream backend requests",
		},
		[]string{"backend", "model", "status"},
	)

	// UpstreamLatency records backend round-trip latency.
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oaigw_upstream_latency_seconds",
			Help:    "Upstream backend latency",
			Buckets: LLMBuckets,
		},
		[]string{"backend", "model"},
	)

	// UpstreamTokensTotal counts tokens processed by direction.
	UpstreamTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oaigw_upstream_tokens_total",
			Help: "Token count",
		},
		[]string{"backend", "model", "direction"},
	)

	// CredentialSelectionsTotal counts how often each pooled credential
	// handled a request, by outcome.
	CredentialSelectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oaigw_credential_selections_total",
			Help: "Credential pool selections",
		},
		[]string{"key_id", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		KeepAliveHeartbeatsTotal,
		UpstreamRequestsTotal,
		UpstreamLatency,
		UpstreamTokensTotal,
		CredentialSelectionsTotal,
	)
}
