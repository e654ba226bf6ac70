// Package routing dispatches model requests to backends. A request is
// categorized by task type, a strategy picks the route, and a per-route
// circuit breaker decides between the primary backend and its single-hop
// fallback.
package routing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/infra/backend"
	"github.com/vietddude/healer/internal/resilience/breaker"
)

// Router routes completion, streaming and embedding requests.
type Router struct {
	backends *backend.Registry
	breakers *breaker.Registry
	strategy Strategy
	routes   []domain.RouteConfiguration

	mu       sync.Mutex
	wrappers map[string]*CircuitWrapper
}

// New validates the route set and builds a router. Every route must name a
// primary pair; fallback backend and model come together or not at all, and
// a fallback must differ from its primary.
func New(backends *backend.Registry, breakers *breaker.Registry, strategy Strategy, routes []domain.RouteConfiguration) (*Router, error) {
	for _, r := range routes {
		if r.PrimaryBackend == "" || r.PrimaryModel == "" {
			return nil, fmt.Errorf("route %q: primary backend and model are required", r.Name)
		}
		if (r.FallbackBackend == "") != (r.FallbackModel == "") {
			return nil, fmt.Errorf("route %q: fallback backend and model must be set together", r.Name)
		}
		if r.FallbackBackend != "" && r.FallbackBackend == r.PrimaryBackend {
			return nil, fmt.Errorf("route %q: fallback backend equals primary", r.Name)
		}
	}

	return &Router{
		backends: backends,
		breakers: breakers,
		strategy: strategy,
		routes:   append([]domain.RouteConfiguration(nil), routes...),
		wrappers: make(map[string]*CircuitWrapper),
	}, nil
}

// Complete routes a blocking completion request.
func (rt *Router) Complete(ctx context.Context, req backend.Request) (backend.Response, error) {
	task, w, err := rt.prepare(req)
	if err != nil {
		return backend.Response{}, err
	}

	var resp backend.Response
	err = w.call(ctx, task, func(b backend.Backend, model string) error {
		r := req
		r.Model = model
		out, callErr := b.Complete(ctx, r)
		if callErr != nil {
			return callErr
		}
		resp = out
		return nil
	})
	return resp, err
}

// StreamComplete routes a streaming completion request. Breaker accounting
// covers stream establishment; mid-stream errors surface as chunks.
func (rt *Router) StreamComplete(ctx context.Context, req backend.Request) (<-chan backend.StreamChunk, error) {
	task, w, err := rt.prepare(req)
	if err != nil {
		return nil, err
	}

	var stream <-chan backend.StreamChunk
	err = w.call(ctx, task, func(b backend.Backend, model string) error {
		r := req
		r.Model = model
		out, callErr := b.StreamComplete(ctx, r)
		if callErr != nil {
			return callErr
		}
		stream = out
		return nil
	})
	return stream, err
}

// GenerateEmbedding routes an embedding request.
func (rt *Router) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	task := domain.TaskGeneral
	route, err := rt.strategy.Select(task, rt.routes)
	if err != nil {
		return nil, err
	}

	var vec []float32
	err = rt.wrapperFor(route).call(ctx, task, func(b backend.Backend, _ string) error {
		out, callErr := b.Embed(ctx, text)
		if callErr != nil {
			return callErr
		}
		vec = out
		return nil
	})
	return vec, err
}

// Routes returns a copy of the configured route set.
func (rt *Router) Routes() []domain.RouteConfiguration {
	return append([]domain.RouteConfiguration(nil), rt.routes...)
}

func (rt *Router) prepare(req backend.Request) (domain.TaskType, *CircuitWrapper, error) {
	task := DetectTaskType(req.Prompt, req.TaskTypeHint)
	route, err := rt.strategy.Select(task, rt.routes)
	if err != nil {
		return task, nil, err
	}
	slog.Debug("route selected",
		"task_type", task,
		"route", route.Name,
		"primary", route.PrimaryBackend,
	)
	return task, rt.wrapperFor(route), nil
}

// wrapperFor returns the circuit wrapper for a route, creating it on first
// use. One wrapper (and one breaker) exists per (primary, fallback) pair.
func (rt *Router) wrapperFor(route domain.RouteConfiguration) *CircuitWrapper {
	key := route.PrimaryBackend + "|" + route.FallbackBackend
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if w, ok := rt.wrappers[key]; ok {
		return w
	}
	w := newCircuitWrapper(route, rt.backends, rt.breakers)
	rt.wrappers[key] = w
	return w
}
