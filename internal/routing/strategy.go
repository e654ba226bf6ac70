package routing

import (
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
)

// ErrNoRoute is returned when a strategy finds no enabled route for a task.
var ErrNoRoute = errors.New("no route available")

// Strategy picks a route for a task category from the configured route set.
type Strategy interface {
	Select(task domain.TaskType, routes []domain.RouteConfiguration) (domain.RouteConfiguration, error)
}

// TaskBasedStrategy picks the enabled route matching the task category,
// preferring lower Priority values. Falls back to the general route when the
// task has no dedicated route.
type TaskBasedStrategy struct{}

func (TaskBasedStrategy) Select(task domain.TaskType, routes []domain.RouteConfiguration) (domain.RouteConfiguration, error) {
	if r, ok := pickByTask(task, routes); ok {
		return r, nil
	}
	if task != domain.TaskGeneral {
		if r, ok := pickByTask(domain.TaskGeneral, routes); ok {
			return r, nil
		}
	}
	return domain.RouteConfiguration{}, fmt.Errorf("%w for task %q", ErrNoRoute, task)
}

func pickByTask(task domain.TaskType, routes []domain.RouteConfiguration) (domain.RouteConfiguration, bool) {
	var best domain.RouteConfiguration
	found := false
	for _, r := range routes {
		if !r.Enabled || r.TaskType != task {
			continue
		}
		if !found || r.Priority < best.Priority {
			best = r
			found = true
		}
	}
	return best, found
}

// CostOptimizedStrategy picks the cheapest enabled route whose declared
// quality clears QualityFloor. Routes for the matching task are considered
// first, then general routes.
type CostOptimizedStrategy struct {
	QualityFloor float64
}

func (s CostOptimizedStrategy) Select(task domain.TaskType, routes []domain.RouteConfiguration) (domain.RouteConfiguration, error) {
	for _, t := range []domain.TaskType{task, domain.TaskGeneral} {
		var best domain.RouteConfiguration
		found := false
		for _, r := range routes {
			if !r.Enabled || r.TaskType != t || r.MinimumQuality < s.QualityFloor {
				continue
			}
			if !found || r.CostPer1KTokens < best.CostPer1KTokens {
				best = r
				found = true
			}
		}
		if found {
			return best, nil
		}
		if t == domain.TaskGeneral {
			break
		}
	}
	return domain.RouteConfiguration{}, fmt.Errorf("%w for task %q (quality floor %.2f)", ErrNoRoute, task, s.QualityFloor)
}

// LatencyProbe reports the observed average latency of a backend, or zero
// when nothing has been observed yet.
type LatencyProbe func(backendName string) time.Duration

// PerformanceOptimizedStrategy picks the enabled route with the lowest
// latency bound. Routes without a declared bound use the observed average
// latency from the probe when one is wired.
type PerformanceOptimizedStrategy struct {
	Probe LatencyProbe
}

func (s PerformanceOptimizedStrategy) Select(task domain.TaskType, routes []domain.RouteConfiguration) (domain.RouteConfiguration, error) {
	for _, t := range []domain.TaskType{task, domain.TaskGeneral} {
		var best domain.RouteConfiguration
		bestLat := time.Duration(0)
		found := false
		for _, r := range routes {
			if !r.Enabled || r.TaskType != t {
				continue
			}
			lat := s.latencyOf(r)
			if !found || lat < bestLat {
				best = r
				bestLat = lat
				found = true
			}
		}
		if found {
			return best, nil
		}
		if t == domain.TaskGeneral {
			break
		}
	}
	return domain.RouteConfiguration{}, fmt.Errorf("%w for task %q", ErrNoRoute, task)
}

func (s PerformanceOptimizedStrategy) latencyOf(r domain.RouteConfiguration) time.Duration {
	if r.MaxLatencyMs > 0 {
		return time.Duration(r.MaxLatencyMs) * time.Millisecond
	}
	if s.Probe != nil {
		if lat := s.Probe(r.PrimaryBackend); lat > 0 {
			return lat
		}
	}
	// Unknown latency sorts last.
	return time.Hour
}
