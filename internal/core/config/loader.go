package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/healer/internal/resilience/backoff"
)

// Load reads configuration from a YAML file, applies defaults and validates
// the result. Validation failures abort the load; no partial configuration
// escapes this function.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RequestTimeoutMs == 0 {
		c.Server.RequestTimeoutMs = 60_000
	}

	if c.Retry.MaxRetries == 0 && c.Retry.InitialDelayMs == 0 {
		c.Retry = RetryConfig{
			MaxRetries:            3,
			InitialDelayMs:        500,
			MaxDelayMs:            30_000,
			UseExponentialBackoff: true,
			UseJitter:             true,
			BackoffMultiplier:     2.0,
		}
	}
	if c.Retry.BackoffMultiplier == 0 {
		c.Retry.BackoffMultiplier = 2.0
	}
	if c.Retry.MaxDelayMs == 0 {
		c.Retry.MaxDelayMs = 30_000
	}

	if c.Breaker.FailureThreshold == 0 {
		c.Breaker = BreakerConfig{
			FailureThreshold:       5,
			OpenDurationMs:         30_000,
			MinimumStateDurationMs: 5_000,
			SuccessThreshold:       2,
			MaxProbes:              1,
			ResetCounterOnSuccess:  true,
		}
	}

	if c.Executor.MaxConcurrentTools == 0 {
		c.Executor.MaxConcurrentTools = 4
	}
	if c.Executor.TimeoutPerToolMs == 0 {
		c.Executor.TimeoutPerToolMs = 30_000
	}
	if c.Executor.MaxHistorySize == 0 {
		c.Executor.MaxHistorySize = 100
	}

	if c.Routing.Strategy == "" {
		c.Routing.Strategy = "task_based"
	}
}

// Validate checks every tunable against its allowed range. All violations
// are reported, not just the first.
func (c *AppConfig) Validate() error {
	var errs []error

	checkRange := func(name string, v, lo, hi int) {
		if v < lo || v > hi {
			errs = append(errs, fmt.Errorf("%s = %d, must be in [%d, %d]", name, v, lo, hi))
		}
	}

	checkRange("breaker.failure_threshold", c.Breaker.FailureThreshold, 1, 100)
	checkRange("breaker.open_duration_ms", c.Breaker.OpenDurationMs, 5_000, 300_000)
	checkRange("breaker.success_threshold", c.Breaker.SuccessThreshold, 1, 10)
	if c.Breaker.MinimumStateDurationMs >= c.Breaker.OpenDurationMs {
		errs = append(errs, fmt.Errorf("breaker.minimum_state_duration_ms = %d, must be below open_duration_ms",
			c.Breaker.MinimumStateDurationMs))
	}
	if c.Breaker.MaxProbes < 1 {
		errs = append(errs, fmt.Errorf("breaker.max_probes = %d, must be at least 1", c.Breaker.MaxProbes))
	}

	checkRange("server.request_timeout_ms", c.Server.RequestTimeoutMs, 5_000, 300_000)

	checkRange("retry.max_retries", c.Retry.MaxRetries, 0, 10)
	checkRange("retry.initial_delay_ms", c.Retry.InitialDelayMs, 100, 5_000)
	checkRange("retry.max_delay_ms", c.Retry.MaxDelayMs, 1_000, 60_000)
	if c.Retry.MaxDelayMs < c.Retry.InitialDelayMs {
		errs = append(errs, fmt.Errorf("retry.max_delay_ms = %d, must be at least initial_delay_ms",
			c.Retry.MaxDelayMs))
	}

	checkRange("executor.max_concurrent_tools", c.Executor.MaxConcurrentTools, 1, 10)
	checkRange("executor.timeout_per_tool_ms", c.Executor.TimeoutPerToolMs, 5_000, 300_000)
	checkRange("executor.max_history_size", c.Executor.MaxHistorySize, 10, 1_000)

	// A single tool execution, retries and delays included, must finish
	// inside ten minutes.
	exec := c.Executor.ExecutorSettings(c.Retry)
	worst := exec.TimeoutPerTool*time.Duration(exec.MaxRetries+1) + backoff.WorstCaseTotal(exec.Policy)
	if worst > 10*time.Minute {
		errs = append(errs, fmt.Errorf("worst-case tool execution %s exceeds 10m; lower timeout_per_tool_ms, max_retries or delays", worst))
	}

	switch c.Routing.Strategy {
	case "task_based", "cost_optimized", "performance_optimized":
	default:
		errs = append(errs, fmt.Errorf("routing.strategy = %q, must be task_based, cost_optimized or performance_optimized",
			c.Routing.Strategy))
	}

	seen := make(map[string]bool)
	for _, b := range c.Backends {
		if b.Name == "" {
			errs = append(errs, fmt.Errorf("backend with empty name"))
			continue
		}
		if seen[b.Name] {
			errs = append(errs, fmt.Errorf("duplicate backend %q", b.Name))
		}
		seen[b.Name] = true
		if b.Type == "http" && b.Endpoint == "" {
			errs = append(errs, fmt.Errorf("backend %q: http type requires an endpoint", b.Name))
		}
	}

	for _, r := range c.Routes {
		if r.PrimaryBackend == "" || r.PrimaryModel == "" {
			errs = append(errs, fmt.Errorf("route %q: primary backend and model are required", r.Name))
		}
		if (r.FallbackBackend == "") != (r.FallbackModel == "") {
			errs = append(errs, fmt.Errorf("route %q: fallback backend and model must be set together", r.Name))
		}
		if r.FallbackBackend != "" && r.FallbackBackend == r.PrimaryBackend {
			errs = append(errs, fmt.Errorf("route %q: fallback backend equals primary", r.Name))
		}
		if len(c.Backends) > 0 {
			if r.PrimaryBackend != "" && !seen[r.PrimaryBackend] {
				errs = append(errs, fmt.Errorf("route %q: unknown primary backend %q", r.Name, r.PrimaryBackend))
			}
			if r.FallbackBackend != "" && !seen[r.FallbackBackend] {
				errs = append(errs, fmt.Errorf("route %q: unknown fallback backend %q", r.Name, r.FallbackBackend))
			}
		}
	}

	return errors.Join(errs...)
}
