package routing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/infra/backend"
	"github.com/vietddude/healer/internal/metrics"
	"github.com/vietddude/healer/internal/resilience/breaker"
)

// ErrCircuitOpen is returned when the breaker refuses the primary and the
// route has no fallback to divert to.
var ErrCircuitOpen = errors.New("circuit open and no fallback configured")

// CircuitWrapper binds one (primary, fallback) backend pair to one breaker.
// The breaker tracks primary health only: fallback calls bypass it and never
// feed its counters.
type CircuitWrapper struct {
	route    domain.RouteConfiguration
	backends *backend.Registry
	breaker  *breaker.Breaker
}

func newCircuitWrapper(route domain.RouteConfiguration, backends *backend.Registry, breakers *breaker.Registry) *CircuitWrapper {
	name := route.PrimaryBackend
	if route.HasFallback() {
		name = route.PrimaryBackend + "->" + route.FallbackBackend
	}
	return &CircuitWrapper{
		route:    route,
		backends: backends,
		breaker:  breakers.GetOrCreate(name),
	}
}

// call invokes op against the backend the breaker admits. Dispatch rules:
//
//   - Closed, or HalfOpen with a free probe slot: primary, outcome recorded.
//   - Open before the cool-down, or HalfOpen with all probe slots taken:
//     fallback directly, breaker untouched.
//   - Primary failure with a fallback configured: one immediate fallback
//     retry of the same request.
//
// Cancelled calls are never recorded as breaker failures; a half-open probe
// abandoned by cancellation returns its probe slot instead.
func (w *CircuitWrapper) call(ctx context.Context, task domain.TaskType, op func(b backend.Backend, model string) error) error {
	if w.breaker.Allow() {
		primary, err := w.backends.Resolve(w.route.PrimaryBackend)
		if err != nil {
			return err
		}

		start := time.Now()
		callErr := op(primary, w.route.PrimaryModel)
		latency := time.Since(start)

		mon := w.backends.Monitor(w.route.PrimaryBackend)
		if callErr == nil {
			w.recordTransitionAware(func() { w.breaker.RecordSuccess() })
			if mon != nil {
				mon.RecordSuccess(latency)
			}
			metrics.BackendCallsTotal.WithLabelValues(w.route.PrimaryBackend, string(task), "success").Inc()
			metrics.BackendCallLatency.WithLabelValues(w.route.PrimaryBackend).Observe(latency.Seconds())
			return nil
		}

		if cancelled(ctx) {
			w.breaker.ReleaseProbe()
			metrics.BackendCallsTotal.WithLabelValues(w.route.PrimaryBackend, string(task), "cancelled").Inc()
			return callErr
		}

		w.recordTransitionAware(func() { w.breaker.RecordFailure() })
		if mon != nil {
			mon.RecordFailure()
			if mon.DetectThrottlePattern(callErr.Error()) {
				mon.RecordThrottle(0)
			}
		}
		metrics.BackendCallsTotal.WithLabelValues(w.route.PrimaryBackend, string(task), "failure").Inc()

		if !w.route.HasFallback() {
			return callErr
		}
		if fbErr := w.callFallback(ctx, task, op); fbErr != nil {
			return fmt.Errorf("primary %s failed (%v), fallback %s failed: %w",
				w.route.PrimaryBackend, callErr, w.route.FallbackBackend, fbErr)
		}
		return nil
	}

	if !w.route.HasFallback() {
		return fmt.Errorf("%w: backend %s", ErrCircuitOpen, w.route.PrimaryBackend)
	}
	return w.callFallback(ctx, task, op)
}

// callFallback runs op against the fallback backend, outside the breaker.
func (w *CircuitWrapper) callFallback(ctx context.Context, task domain.TaskType, op func(b backend.Backend, model string) error) error {
	fb, err := w.backends.Resolve(w.route.FallbackBackend)
	if err != nil {
		return err
	}

	start := time.Now()
	callErr := op(fb, w.route.FallbackModel)
	latency := time.Since(start)

	mon := w.backends.Monitor(w.route.FallbackBackend)
	status := "success"
	if callErr != nil {
		status = "failure"
		if cancelled(ctx) {
			status = "cancelled"
		} else if mon != nil {
			mon.RecordFailure()
		}
	} else if mon != nil {
		mon.RecordSuccess(latency)
	}

	metrics.BackendCallsTotal.WithLabelValues(w.route.FallbackBackend, string(task), status).Inc()
	metrics.BackendCallLatency.WithLabelValues(w.route.FallbackBackend).Observe(latency.Seconds())
	metrics.FallbacksTotal.WithLabelValues(w.route.PrimaryBackend, w.route.FallbackBackend, status).Inc()
	return callErr
}

// recordTransitionAware records a breaker outcome and emits a transition
// metric when the state changed.
func (w *CircuitWrapper) recordTransitionAware(record func()) {
	before := w.breaker.Status().State
	record()
	after := w.breaker.Status().State
	if before != after {
		metrics.BreakerTransitions.WithLabelValues(w.breaker.Name(), string(after)).Inc()
	}
}

// cancelled reports whether the caller's own context ended. A backend that
// blew its per-call deadline returns DeadlineExceeded with the parent
// context still live; that is a backend failure and must feed the breaker.
func cancelled(ctx context.Context) bool {
	return ctx.Err() != nil
}
