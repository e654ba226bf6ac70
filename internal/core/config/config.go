package config

import (
	"time"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/executor"
	redisclient "github.com/vietddude/healer/internal/infra/redis"
	"github.com/vietddude/healer/internal/infra/storage/postgres"
	"github.com/vietddude/healer/internal/resilience/backoff"
	"github.com/vietddude/healer/internal/resilience/breaker"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig                `yaml:"server"`
	Logging  LoggingConfig               `yaml:"logging"`
	Database postgres.Config             `yaml:"database"`
	Redis    redisclient.Config          `yaml:"redis"`
	Retry    RetryConfig                 `yaml:"retry"`
	Breaker  BreakerConfig               `yaml:"breaker"`
	Executor ExecutorConfig              `yaml:"executor"`
	Routing  RoutingConfig               `yaml:"routing"`
	Backends []BackendConfig             `yaml:"backends"`
	Routes   []domain.RouteConfiguration `yaml:"routes"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port             int `yaml:"port"`
	RequestTimeoutMs int `yaml:"request_timeout_ms"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// RetryConfig holds retry and backoff settings. Durations are milliseconds.
type RetryConfig struct {
	MaxRetries            int     `yaml:"max_retries"`
	InitialDelayMs        int     `yaml:"initial_delay_ms"`
	MaxDelayMs            int     `yaml:"max_delay_ms"`
	UseExponentialBackoff bool    `yaml:"use_exponential_backoff"`
	UseJitter             bool    `yaml:"use_jitter"`
	BackoffMultiplier     float64 `yaml:"backoff_multiplier"`
}

// Policy converts to the backoff policy used at runtime.
func (c RetryConfig) Policy() backoff.RetryPolicy {
	return backoff.RetryPolicy{
		MaxRetries:            c.MaxRetries,
		InitialDelay:          time.Duration(c.InitialDelayMs) * time.Millisecond,
		MaxDelay:              time.Duration(c.MaxDelayMs) * time.Millisecond,
		UseExponentialBackoff: c.UseExponentialBackoff,
		UseJitter:             c.UseJitter,
		BackoffMultiplier:     c.BackoffMultiplier,
	}
}

// BreakerConfig holds circuit breaker settings. Durations are milliseconds.
type BreakerConfig struct {
	FailureThreshold       int  `yaml:"failure_threshold"`
	OpenDurationMs         int  `yaml:"open_duration_ms"`
	MinimumStateDurationMs int  `yaml:"minimum_state_duration_ms"`
	SuccessThreshold       int  `yaml:"success_threshold"`
	MaxProbes              int  `yaml:"max_probes"`
	ResetCounterOnSuccess  bool `yaml:"reset_counter_on_success"`
}

// BreakerSettings converts to the runtime breaker configuration.
func (c BreakerConfig) BreakerSettings() breaker.Config {
	return breaker.Config{
		FailureThreshold:      c.FailureThreshold,
		OpenDuration:          time.Duration(c.OpenDurationMs) * time.Millisecond,
		MinimumStateDuration:  time.Duration(c.MinimumStateDurationMs) * time.Millisecond,
		SuccessThreshold:      c.SuccessThreshold,
		MaxProbes:             c.MaxProbes,
		ResetCounterOnSuccess: c.ResetCounterOnSuccess,
	}
}

// ExecutorConfig holds tool executor settings.
type ExecutorConfig struct {
	MaxConcurrentTools int `yaml:"max_concurrent_tools"`
	TimeoutPerToolMs   int `yaml:"timeout_per_tool_ms"`
	MaxHistorySize     int `yaml:"max_history_size"`
}

// ExecutorSettings converts to the runtime executor configuration, sharing
// the global retry policy.
func (c ExecutorConfig) ExecutorSettings(retry RetryConfig) executor.Config {
	return executor.Config{
		MaxRetries:         retry.MaxRetries,
		TimeoutPerTool:     time.Duration(c.TimeoutPerToolMs) * time.Millisecond,
		MaxConcurrentTools: c.MaxConcurrentTools,
		MaxHistorySize:     c.MaxHistorySize,
		Policy:             retry.Policy(),
	}
}

// RoutingConfig selects the route strategy.
type RoutingConfig struct {
	Strategy     string  `yaml:"strategy"` // task_based, cost_optimized, performance_optimized
	QualityFloor float64 `yaml:"quality_floor"`
}

// BackendConfig holds settings for one model backend.
type BackendConfig struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"` // http, stub
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	// GRPCHealthEndpoint, when set, enables liveness probing through the
	// standard gRPC health service at this address.
	GRPCHealthEndpoint string `yaml:"grpc_health_endpoint"`
}
