package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecoveriesTotal tracks recover invocations by error type and outcome
	RecoveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healer_recoveries_total",
			Help: "Total number of recovery attempts",
		},
		[]string{"error_type", "outcome"},
	)

	// RecoveryDuration tracks end-to-end recover latency
	RecoveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "healer_recovery_duration_seconds",
			Help:    "Recovery duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"error_type"},
	)

	// BreakerTransitions tracks circuit breaker state changes
	BreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healer_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"breaker", "to_state"},
	)

	// BackendCallsTotal tracks model backend calls
	BackendCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healer_backend_calls_total",
			Help: "Total number of model backend calls",
		},
		[]string{"backend", "task_type", "status"},
	)

	// BackendCallLatency tracks model backend call latency
	BackendCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "healer_backend_call_latency_seconds",
			Help:    "Model backend call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	// FallbacksTotal tracks single-hop fallback dispatches
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healer_fallbacks_total",
			Help: "Total number of fallback backend dispatches",
		},
		[]string{"primary", "fallback", "status"},
	)

	// ToolAttemptsTotal tracks tool execution attempts
	ToolAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healer_tool_attempts_total",
			Help: "Total number of tool execution attempts",
		},
		[]string{"tool", "status"},
	)

	// ToolExecutionDuration tracks tool execution time including retries
	ToolExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "healer_tool_execution_duration_seconds",
			Help:    "Tool execution duration in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)
)
