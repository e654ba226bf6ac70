package control

import (
	"context"
	"testing"

	"github.com/vietddude/healer/internal/core/config"
	"github.com/vietddude/healer/internal/core/domain"
	"github.com/vietddude/healer/internal/executor"
	"github.com/vietddude/healer/internal/infra/backend"
	"github.com/vietddude/healer/internal/infra/browser"
	"github.com/vietddude/healer/internal/recovery"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Server: config.ServerConfig{Port: 0, RequestTimeoutMs: 10_000},
		Retry: config.RetryConfig{
			MaxRetries:            2,
			InitialDelayMs:        100,
			MaxDelayMs:            1_000,
			UseExponentialBackoff: true,
			BackoffMultiplier:     2.0,
		},
		Breaker: config.BreakerConfig{
			FailureThreshold:       5,
			OpenDurationMs:         30_000,
			MinimumStateDurationMs: 5_000,
			SuccessThreshold:       2,
			MaxProbes:              1,
			ResetCounterOnSuccess:  true,
		},
		Executor: config.ExecutorConfig{
			MaxConcurrentTools: 4,
			TimeoutPerToolMs:   10_000,
			MaxHistorySize:     50,
		},
		Routing: config.RoutingConfig{Strategy: "task_based"},
		Backends: []config.BackendConfig{
			{Name: "primary", Type: "stub"},
			{Name: "secondary", Type: "stub"},
		},
		Routes: []domain.RouteConfiguration{
			{
				Name:            "general",
				TaskType:        domain.TaskGeneral,
				PrimaryBackend:  "primary",
				PrimaryModel:    "primary-1",
				FallbackBackend: "secondary",
				FallbackModel:   "secondary-1",
				Priority:        1,
				Enabled:         true,
			},
		},
	}
}

func TestNewService_MemoryMode(t *testing.T) {
	agent := browser.NewScriptedAgent()
	svc, err := NewService(testConfig(), Options{
		Agent: agent,
		Browser: recovery.Collaborators{
			Healer:      &browser.ScriptedHealer{},
			Waiter:      &browser.ScriptedWaiter{Stable: true},
			Navigator:   agent,
			Snapshotter: agent,
		},
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	if svc.Router() == nil || svc.Orchestrator() == nil || svc.Executor() == nil {
		t.Fatal("core components not wired")
	}

	resp, err := svc.Router().Complete(context.Background(), backend.Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Backend != "primary" {
		t.Errorf("served by %q, want primary", resp.Backend)
	}

	res := svc.Executor().ExecuteOne(context.Background(), executor.Call{
		Tool: executor.ToolNavigate,
		Args: map[string]domain.Value{"url": domain.String("https://example.com")},
	})
	if !res.Success {
		t.Errorf("tool execution failed: %s", res.Error)
	}
}

func TestNewService_NoAgent(t *testing.T) {
	svc, err := NewService(testConfig(), Options{})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if svc.Executor() != nil {
		t.Error("executor wired without an agent")
	}
	if svc.Orchestrator() == nil {
		t.Error("orchestrator missing")
	}
}

func TestNewService_UnknownBackendType(t *testing.T) {
	cfg := testConfig()
	cfg.Backends[0].Type = "carrier_pigeon"
	if _, err := NewService(cfg, Options{}); err == nil {
		t.Error("NewService accepted an unknown backend type")
	}
}
