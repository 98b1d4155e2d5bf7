// Package observability holds the process-wide Prometheus collectors.
// Everything is registered at init time on the default registry and
// served from /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ToolInvocations counts tool executions by tool name and outcome.
	ToolInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runlens_tool_invocations_total",
			Help: "Analytics tool invocations by tool and status.",
		},
		[]string{"tool", "status"},
	)

	// CacheLookups counts activity cache reads by outcome: hit,
	// superset_hit, miss, expired.
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runlens_cache_lookups_total",
			Help: "Activity cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	// UpstreamFetches counts calls to the activity source by operation
	// and status.
	UpstreamFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runlens_upstream_fetches_total",
			Help: "Upstream activity API fetches by operation and status.",
		},
		[]string{"operation", "status"},
	)

	// LLMRequests counts model completions by provider and status.
	LLMRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runlens_llm_requests_total",
			Help: "LLM completion requests by provider and status.",
		},
		[]string{"provider", "status"},
	)

	// LLMTokens accumulates token usage by provider and direction
	// (input or output).
	LLMTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runlens_llm_tokens_total",
			Help: "LLM tokens consumed by provider and direction.",
		},
		[]string{"provider", "direction"},
	)

	// InsightDuration tracks end-to-end insight request latency.
	InsightDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "runlens_insight_duration_seconds",
			Help:    "End-to-end insight request duration.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
)

func init() {
	prometheus.MustRegister(
		ToolInvocations,
		CacheLookups,
		UpstreamFetches,
		LLMRequests,
		LLMTokens,
		InsightDuration,
	)
}
