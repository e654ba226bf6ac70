package routing

import (
	"errors"
	"testing"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
)

func testRoutes() []domain.RouteConfiguration {
	return []domain.RouteConfiguration{
		{
			Name:            "code-fast",
			TaskType:        domain.TaskCodeGeneration,
			PrimaryBackend:  "fast",
			PrimaryModel:    "fast-1",
			CostPer1KTokens: 0.01,
			MaxLatencyMs:    200,
			Priority:        1,
			Enabled:         true,
			MinimumQuality:  0.9,
		},
		{
			Name:            "code-cheap",
			TaskType:        domain.TaskCodeGeneration,
			PrimaryBackend:  "cheap",
			PrimaryModel:    "cheap-1",
			CostPer1KTokens: 0.0001,
			MaxLatencyMs:    2000,
			Priority:        2,
			Enabled:         true,
			MinimumQuality:  0.8,
		},
		{
			Name:           "general",
			TaskType:       domain.TaskGeneral,
			PrimaryBackend: "general",
			PrimaryModel:   "general-1",
			Priority:       10,
			Enabled:        true,
			MinimumQuality: 0.7,
		},
		{
			Name:           "disabled",
			TaskType:       domain.TaskCodeGeneration,
			PrimaryBackend: "off",
			PrimaryModel:   "off-1",
			Priority:       0,
			Enabled:        false,
		},
	}
}

func TestTaskBasedStrategy(t *testing.T) {
	s := TaskBasedStrategy{}
	routes := testRoutes()

	r, err := s.Select(domain.TaskCodeGeneration, routes)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if r.Name != "code-fast" {
		t.Errorf("picked %q, want code-fast (lowest enabled priority)", r.Name)
	}

	// Unmapped task falls back to the general route.
	r, err = s.Select(domain.TaskSummarization, routes)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if r.Name != "general" {
		t.Errorf("picked %q, want general", r.Name)
	}
}

func TestTaskBasedStrategyNoRoute(t *testing.T) {
	s := TaskBasedStrategy{}
	_, err := s.Select(domain.TaskCodeGeneration, nil)
	if !errors.Is(err, ErrNoRoute) {
		t.Errorf("Select() error = %v, want ErrNoRoute", err)
	}
}

func TestCostOptimizedStrategy(t *testing.T) {
	routes := testRoutes()

	s := CostOptimizedStrategy{QualityFloor: 0.8}
	r, err := s.Select(domain.TaskCodeGeneration, routes)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if r.Name != "code-cheap" {
		t.Errorf("picked %q, want code-cheap (0.0001 beats 0.01)", r.Name)
	}

	// Raising the floor excludes the cheap route.
	s = CostOptimizedStrategy{QualityFloor: 0.85}
	r, err = s.Select(domain.TaskCodeGeneration, routes)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if r.Name != "code-fast" {
		t.Errorf("picked %q, want code-fast", r.Name)
	}
}

func TestPerformanceOptimizedStrategy(t *testing.T) {
	routes := testRoutes()

	s := PerformanceOptimizedStrategy{}
	r, err := s.Select(domain.TaskCodeGeneration, routes)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if r.Name != "code-fast" {
		t.Errorf("picked %q, want code-fast (200ms beats 2000ms)", r.Name)
	}
}

func TestPerformanceOptimizedStrategyUsesProbe(t *testing.T) {
	routes := testRoutes()
	for i := range routes {
		routes[i].MaxLatencyMs = 0
	}

	s := PerformanceOptimizedStrategy{
		Probe: func(name string) time.Duration {
			if name == "cheap" {
				return 50 * time.Millisecond
			}
			return 500 * time.Millisecond
		},
	}
	r, err := s.Select(domain.TaskCodeGeneration, routes)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if r.Name != "code-cheap" {
		t.Errorf("picked %q, want code-cheap (observed 50ms)", r.Name)
	}
}
