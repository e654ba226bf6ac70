// Package executor runs single tool calls with retry, sequences of calls,
// and fallback chains against an automation surface.
package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/metrics"
	"github.com/vietddude/healer/internal/resilience/backoff"
)

// Invoker executes one named tool against the automation surface.
type Invoker interface {
	Invoke(ctx context.Context, tool string, args map[string]domain.Value) (any, error)
}

// Call is one queued tool invocation.
type Call struct {
	Tool          string
	Args          map[string]domain.Value
	CorrelationID string
}

// Config bounds executor behavior. Validation of the ranges happens at
// configuration load.
type Config struct {
	MaxRetries         int
	TimeoutPerTool     time.Duration
	MaxConcurrentTools int
	MaxHistorySize     int
	Policy             backoff.RetryPolicy
}

// DefaultConfig provides sensible executor defaults.
var DefaultConfig = Config{
	MaxRetries:         2,
	TimeoutPerTool:     30 * time.Second,
	MaxConcurrentTools: 4,
	MaxHistorySize:     100,
	Policy:             backoff.DefaultPolicy,
}

// Executor wraps an Invoker with retries, per-attempt timeouts, and a
// bounded history of completed results.
type Executor struct {
	invoker Invoker
	cfg     Config
	sem     chan struct{}

	history *historyBuffer
}

// New creates an executor around the given invoker.
func New(invoker Invoker, cfg Config) *Executor {
	if cfg.MaxConcurrentTools < 1 {
		cfg.MaxConcurrentTools = 1
	}
	return &Executor{
		invoker: invoker,
		cfg:     cfg,
		sem:     make(chan struct{}, cfg.MaxConcurrentTools),
		history: newHistoryBuffer(cfg.MaxHistorySize),
	}
}

// ExecuteOne runs a single call with up to MaxRetries+1 attempts, each
// bounded by TimeoutPerTool. Failures come back as data in the result, not
// as an error. Cancellation during a wait aborts the whole call with a
// cancelled result.
func (e *Executor) ExecuteOne(ctx context.Context, call Call) domain.ToolExecutionResult {
	start := time.Now()

	select {
	case e.sem <- struct{}{}:
		defer func() { <-e.sem }()
	case <-ctx.Done():
		// AttemptCount is always at least 1, even when cancellation struck
		// before the tool ran.
		return e.complete(call, domain.ToolExecutionResult{
			ToolName:          call.Tool,
			Cancelled:         true,
			Error:             ctx.Err().Error(),
			AttemptCount:      1,
			ExecutionDuration: time.Since(start),
		})
	}

	var lastErr error
	maxAttempts := e.cfg.MaxRetries + 1

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.TimeoutPerTool)
		value, err := e.invoker.Invoke(attemptCtx, call.Tool, call.Args)
		cancel()

		if err == nil {
			metrics.ToolAttemptsTotal.WithLabelValues(call.Tool, "success").Inc()
			metrics.ToolExecutionDuration.WithLabelValues(call.Tool).
				Observe(time.Since(start).Seconds())
			return e.complete(call, domain.ToolExecutionResult{
				ToolName:          call.Tool,
				Success:           true,
				Result:            value,
				AttemptCount:      attempt,
				WasRetried:        attempt > 1,
				ExecutionDuration: time.Since(start),
			})
		}

		metrics.ToolAttemptsTotal.WithLabelValues(call.Tool, "failure").Inc()
		lastErr = err

		// The caller cancelling is not a tool failure.
		if ctx.Err() != nil {
			return e.complete(call, domain.ToolExecutionResult{
				ToolName:          call.Tool,
				Cancelled:         true,
				Error:             ctx.Err().Error(),
				AttemptCount:      attempt,
				WasRetried:        attempt > 1,
				ExecutionDuration: time.Since(start),
			})
		}

		if attempt < maxAttempts {
			slog.Debug("Tool attempt failed, backing off",
				"tool", call.Tool,
				"attempt", attempt,
				"error", err,
			)
			if serr := backoff.Sleep(ctx, backoff.Delay(attempt, e.cfg.Policy)); serr != nil {
				return e.complete(call, domain.ToolExecutionResult{
					ToolName:          call.Tool,
					Cancelled:         true,
					Error:             serr.Error(),
					AttemptCount:      attempt,
					WasRetried:        attempt > 1,
					ExecutionDuration: time.Since(start),
				})
			}
		}
	}

	metrics.ToolExecutionDuration.WithLabelValues(call.Tool).
		Observe(time.Since(start).Seconds())
	return e.complete(call, domain.ToolExecutionResult{
		ToolName:          call.Tool,
		Success:           false,
		Error:             lastErr.Error(),
		AttemptCount:      maxAttempts,
		WasRetried:        maxAttempts > 1,
		ExecutionDuration: time.Since(start),
	})
}

// ExecuteSequence runs calls strictly one at a time. Automation state
// (current page, active element) is shared, so concurrent execution against
// the same surface is disallowed, not merely discouraged. Every queued call
// runs to completion; earlier failures don't short-circuit later calls.
func (e *Executor) ExecuteSequence(ctx context.Context, calls []Call) []domain.ToolExecutionResult {
	results := make([]domain.ToolExecutionResult, 0, len(calls))
	for _, call := range calls {
		if ctx.Err() != nil {
			results = append(results, e.complete(call, domain.ToolExecutionResult{
				ToolName:     call.Tool,
				Cancelled:    true,
				Error:        ctx.Err().Error(),
				AttemptCount: 1,
			}))
			continue
		}
		results = append(results, e.ExecuteOne(ctx, call))
	}
	return results
}

// ExecuteWithFallback runs primary and, on failure, each fallback in order
// until one succeeds. The winning fallback result is annotated with the
// fallback index and the primary's error; if none succeed, the last
// fallback's failure is returned.
func (e *Executor) ExecuteWithFallback(
	ctx context.Context,
	primary Call,
	fallbacks []Call,
) domain.ToolExecutionResult {
	result := e.ExecuteOne(ctx, primary)
	if result.Success || result.Cancelled || len(fallbacks) == 0 {
		return result
	}

	primaryErr := result.Error
	for i, fb := range fallbacks {
		result = e.ExecuteOne(ctx, fb)
		if result.Cancelled {
			return result
		}
		if result.Success {
			if result.Metadata == nil {
				result.Metadata = make(map[string]domain.Value)
			}
			result.Metadata[domain.MetaFallbackUsed] = domain.Boolean(true)
			result.Metadata[domain.MetaFallbackIndex] = domain.Number(float64(i))
			result.Metadata[domain.MetaPrimaryError] = domain.String(primaryErr)
			// Re-record so the stored copy carries the annotations.
			e.history.replaceLast(fb.CorrelationID, result)
			return result
		}
	}
	return result
}

// GetExecutionHistory returns the completed results recorded under a
// correlation id, oldest first.
func (e *Executor) GetExecutionHistory(correlationID string) []domain.ToolExecutionResult {
	return e.history.get(correlationID)
}

func (e *Executor) complete(call Call, result domain.ToolExecutionResult) domain.ToolExecutionResult {
	e.history.add(call.CorrelationID, result)
	return result
}
